// Package schema defines the fixed column layout of the national COVID-19
// cases table. The column list is shared between table creation and the
// chunked CSV reader so the two paths can never drift apart.
package schema

// Column names of the cases table, in file order.
const (
	FechaActualizacion  = "FECHA_ACTUALIZACION"
	IDRegistro          = "ID_REGISTRO"
	Origen              = "ORIGEN"
	Sector              = "SECTOR"
	EntidadUM           = "ENTIDAD_UM"
	Sexo                = "SEXO"
	EntidadNac          = "ENTIDAD_NAC"
	EntidadRes          = "ENTIDAD_RES"
	MunicipioRes        = "MUNICIPIO_RES"
	TipoPaciente        = "TIPO_PACIENTE"
	FechaIngreso        = "FECHA_INGRESO"
	FechaSintomas       = "FECHA_SINTOMAS"
	FechaDef            = "FECHA_DEF"
	Intubado            = "INTUBADO"
	Neumonia            = "NEUMONIA"
	Edad                = "EDAD"
	Nacionalidad        = "NACIONALIDAD"
	Embarazo            = "EMBARAZO"
	HablaLenguaIndig    = "HABLA_LENGUA_INDIG"
	Indigena            = "INDIGENA"
	Diabetes            = "DIABETES"
	EPOC                = "EPOC"
	Asma                = "ASMA"
	Inmusupr            = "INMUSUPR"
	Hipertension        = "HIPERTENSION"
	OtraCom             = "OTRA_COM"
	Cardiovascular      = "CARDIOVASCULAR"
	Obesidad            = "OBESIDAD"
	RenalCronica        = "RENAL_CRONICA"
	Tabaquismo          = "TABAQUISMO"
	OtroCaso            = "OTRO_CASO"
	TomaMuestraLab      = "TOMA_MUESTRA_LAB"
	ResultadoLab        = "RESULTADO_LAB"
	TomaMuestraAntigeno = "TOMA_MUESTRA_ANTIGENO"
	ResultadoAntigeno   = "RESULTADO_ANTIGENO"
	ClasificacionFinal  = "CLASIFICACION_FINAL"
	Migrante            = "MIGRANTE"
	PaisNacionalidad    = "PAIS_NACIONALIDAD"
	PaisOrigen          = "PAIS_ORIGEN"
	UCI                 = "UCI"
)

// Column describes one column of the cases table.
type Column struct {
	Name string
	Type string
}

// Columns is the ordered column list of the cases table. FECHA_DEF stays
// TEXT because the upstream publisher uses the sentinel 9999-99-99 for
// "still alive", which is not a parseable date.
var Columns = []Column{
	{FechaActualizacion, "DATE"},
	{IDRegistro, "TEXT"},
	{Origen, "INTEGER"},
	{Sector, "INTEGER"},
	{EntidadUM, "INTEGER"},
	{Sexo, "INTEGER"},
	{EntidadNac, "INTEGER"},
	{EntidadRes, "INTEGER"},
	{MunicipioRes, "INTEGER"},
	{TipoPaciente, "INTEGER"},
	{FechaIngreso, "DATE"},
	{FechaSintomas, "DATE"},
	{FechaDef, "TEXT"},
	{Intubado, "INTEGER"},
	{Neumonia, "INTEGER"},
	{Edad, "INTEGER"},
	{Nacionalidad, "INTEGER"},
	{Embarazo, "INTEGER"},
	{HablaLenguaIndig, "INTEGER"},
	{Indigena, "INTEGER"},
	{Diabetes, "INTEGER"},
	{EPOC, "INTEGER"},
	{Asma, "INTEGER"},
	{Inmusupr, "INTEGER"},
	{Hipertension, "INTEGER"},
	{OtraCom, "INTEGER"},
	{Cardiovascular, "INTEGER"},
	{Obesidad, "INTEGER"},
	{RenalCronica, "INTEGER"},
	{Tabaquismo, "INTEGER"},
	{OtroCaso, "INTEGER"},
	{TomaMuestraLab, "INTEGER"},
	{ResultadoLab, "INTEGER"},
	{TomaMuestraAntigeno, "INTEGER"},
	{ResultadoAntigeno, "INTEGER"},
	{ClasificacionFinal, "INTEGER"},
	{Migrante, "INTEGER"},
	{PaisNacionalidad, "TEXT"},
	{PaisOrigen, "TEXT"},
	{UCI, "INTEGER"},
}

// DateColumns are the columns whose values carry a calendar date. Readers
// truncate any time-of-day component on these.
var DateColumns = []string{
	FechaActualizacion,
	FechaIngreso,
	FechaSintomas,
	FechaDef,
}

// DeathDateSentinel is the literal the publisher uses in FECHA_DEF when no
// death has been registered. It must be treated as "no value", never parsed.
const DeathDateSentinel = "9999-99-99"

// Names returns the ordered column names.
func Names() []string {
	names := make([]string, len(Columns))
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}
