package catalog

import (
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/form"
	"github.com/MarkoPoloResearchLab/acquisition_console/internal/table"
)

// Entity keys.
const (
	KeyUsers       = "users"
	KeyModules     = "modules"
	KeyModbus      = "modbus"
	KeyOPC         = "opc"
	KeyODBC        = "odbc"
	KeyMeasurement = "measurement"
	KeyJobs        = "jobs"
	KeySettings    = "settings"
	KeyUnits       = "units"
	KeyLinkConfig  = "link-config"
)

// Breadcrumbs of the hub pages that entities hang from.
var (
	CatalogsCrumb      = Breadcrumb{Name: "Catálogos", Route: "/dashboard"}
	SettingsCrumb      = Breadcrumb{Name: "Configuración", Route: "/settings"}
	ConnectionsCrumb   = Breadcrumb{Name: "Conexiones", Route: "/connections"}
	UnregisteredCrumb  = Breadcrumb{Name: "Operaciones no registradas", Route: "/unregistered-operations"}
	connectionsParents = []Breadcrumb{CatalogsCrumb, ConnectionsCrumb}
)

var (
	yesNoOptions   = []form.Option{{Value: true, Label: labelYes}, {Value: false, Label: labelNo}}
	statusOptions  = []form.Option{{Value: true, Label: labelActive}, {Value: false, Label: labelInactive}}
	enabledOptions = []form.Option{{Value: true, Label: "Habilitado"}, {Value: false, Label: "Deshabilitado"}}

	mediaOptions = []form.Option{
		{Value: "ETHERNET", Label: "Ethernet"},
		{Value: "RS-485", Label: "RS-485"},
		{Value: "RS-422", Label: "RS-422"},
		{Value: "RS-232", Label: "RS-232"},
	}
	protocolOptions     = []form.Option{{Value: "MODBUS", Label: "Modbus"}}
	transmissionOptions = []form.Option{
		{Value: "TCPIP", Label: "TCP/IP"},
		{Value: "RTU", Label: "RTU"},
		{Value: "ASCII", Label: "ASCII"},
		{Value: "UDP", Label: "UDP"},
	}
)

// Default returns the console's entity catalog.
func Default() *Catalog {
	catalog, catalogErr := New(
		Users(),
		Modules(),
		Modbus(),
		OPC(),
		ODBC(),
		Measurement(),
		Jobs(),
		Settings(),
		Units(),
		LinkConfig(),
	)
	if catalogErr != nil {
		panic(catalogErr)
	}
	return catalog
}

// Users manages console accounts. Its endpoints are not under API_PREFIX.
func Users() Entity {
	return Entity{
		Key:        KeyUsers,
		Title:      "Usuarios",
		Singular:   "Usuario",
		Subtitle:   "Administra los usuarios de la plataforma",
		Route:      "/users",
		Collection: Endpoint{Path: "users"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Nombre", AccessorKey: "fullName"},
			{Header: "Email", AccessorKey: "username"},
			{Header: "Perfil", AccessorKey: "profiles", Cell: firstProfileCell, NoSort: true},
			{Header: "Verificado", AccessorKey: "verified", Cell: yesNoCell},
			{Header: "Estado", AccessorKey: "erased", Cell: erasedCell},
			{Header: "Fecha de Creación", AccessorKey: "dateCreate", Cell: dateCell},
		},
		Fields: []form.FieldDescriptor{
			form.Text("username", "Nombre de usuario", 6, true),
			form.Password("password", "Contraseña", 6, true),
			form.Text("fullName", "Nombre completo", 12, true),
			form.SourcedDropdown("profile", "Perfil", 12, true, false, SourceProfiles),
			form.Text("serviceConfig.name", "Nombre del servicio", 12, true),
			form.Text("serviceConfig.usernameCv", "Usuario del servicio", 6, true),
			form.Password("serviceConfig.passwordCv", "Contraseña del servicio", 6, true),
		},
		EditFields: []form.FieldDescriptor{
			form.Password("password", "Contraseña", 12, true),
			form.Password("serviceConfig.passwordCv", "Contraseña CV360", 12, true),
		},
		Details: []Detail{
			{Label: "Nombre", Key: "fullName"},
			{Label: "Usuario", Key: "username"},
			{Label: "Perfil", Key: "profiles", Format: profileNames},
			{Label: "Servicio", Key: "serviceConfig.name"},
			{Label: "Cv360 Usuario", Key: "serviceConfig.usernameCv"},
			{Label: "Estado", Key: "enabled", Format: activeText},
			{Label: "Fecha y hora de creación", Key: "dateCreate"},
		},
		Capabilities: table.Capabilities{View: true, Edit: true, Delete: true},
		Register:     true,
		Messages:     Messages{Created: "Usuario registrado correctamente", Updated: "Usuario actualizado correctamente"},
	}
}

// Modules manages the navigation modules granted to profiles.
func Modules() Entity {
	return Entity{
		Key:        KeyModules,
		Title:      "Modulos",
		Singular:   "Modulo",
		Subtitle:   "Módulos de navegación por perfil",
		Route:      "/app-modules",
		Parents:    []Breadcrumb{SettingsCrumb},
		Collection: Endpoint{Prefixed: true, Path: "modules"},
		List:       Endpoint{Prefixed: true, Path: "modules/all"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Nombre", AccessorKey: "name"},
			{Header: "Direccion", AccessorKey: "route"},
			{Header: "Descripcion", AccessorKey: "description"},
			{Header: "Icono", AccessorKey: "iconName"},
			{Header: "Categoria", AccessorKey: "level"},
		},
		Fields: []form.FieldDescriptor{
			form.Text("name", "Nombre", 4, true),
			form.Text("route", "Ruta", 4, true),
			form.Text("iconName", "Nombre del icono", 4, true),
			form.Text("description", "Descripcion", 12, true),
			form.Text("level", "Nivel", 6, true),
			form.Dropdown("isParent", "Es modulo padre", 6, true, false, yesNoOptions...),
			form.SourcedDropdown("profile", "Perfil", 12, true, true, SourceProfiles),
		},
		Details: []Detail{
			{Label: "Nombre", Key: "name"},
			{Label: "Path", Key: "route"},
			{Label: "Icon", Key: "iconName"},
			{Label: "Nivel", Key: "level"},
			{Label: "Descripcion", Key: "description"},
			{Label: "Es Padre", Key: "isParent", Format: yesNoText},
			{Label: "Perfil", Key: "profile", Format: profileNames},
		},
		Capabilities: table.Capabilities{View: true, Delete: true},
		Register:     true,
		Messages:     Messages{Created: "Modulo registrado correctamente"},
	}
}

func modbusFields() []form.FieldDescriptor {
	return []form.FieldDescriptor{
		form.Text("name", "Nombre", 6, true),
		form.Text("deviceIdSlave", "Device - ID / Slave", 6, true),
		form.Text("ipAddress", "Direccion IP", 8, false),
		form.Number("servicePort", "Puerto", 4, false),
		form.Number("baudRate", "Tasa de baudios", 2, false),
		form.Number("wordLength", "Longitud de termino", 2, false),
		form.Number("parity", "Paridad", 2, false),
		form.Number("stopBit", "Detener Bit", 2, false),
		form.Number("scanTime", "Tiempo de escaneo", 2, false),
		form.Number("slaveResponseTimeOut", "Tiempo de espera", 2, false),
		form.Dropdown("mediaType", "Tipo de medio", 4, false, false, mediaOptions...),
		form.Dropdown("protocol", "Protocolo", 4, false, false, protocolOptions...),
		form.Dropdown("transmissionMode", "Modo de transmision", 4, false, false, transmissionOptions...),
		form.Dropdown("singleReg", "Registro unico", 6, false, false, yesNoOptions...),
		form.Dropdown("status", "Estado", 6, false, false, statusOptions...),
	}
}

// Modbus manages Modbus device connections.
func Modbus() Entity {
	return Entity{
		Key:        KeyModbus,
		Title:      "Modbus",
		Singular:   "Conexión Modbus",
		Subtitle:   "Conexiones a dispositivos Modbus",
		Route:      "/modbus",
		Parents:    connectionsParents,
		Collection: Endpoint{Prefixed: true, Path: "modbus-conexion"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Nombre", AccessorKey: "name"},
			{Header: "Device/Slave Id", AccessorKey: "deviceIdSlave"},
			{Header: "IP", AccessorKey: "ipAddress"},
			{Header: "Port", AccessorKey: "servicePort"},
			{Header: "Tipo", AccessorKey: "mediaType"},
			{Header: "Transmision", AccessorKey: "transmissionMode"},
			{Header: "Estado", AccessorKey: "enabled", Cell: activeCell},
		},
		Fields:       modbusFields(),
		EditFields:   modbusFields(),
		Capabilities: table.Capabilities{View: true, Edit: true, Delete: true},
		Register:     true,
		Invalidates:  []string{SourceConnections},
		Messages:     Messages{Created: "Conexion registrada correctamente", Updated: "Conexion actualizada correctamente"},
	}
}

func opcFields() []form.FieldDescriptor {
	return []form.FieldDescriptor{
		form.Text("applicationName", "Nombre de la aplicacion", 4, true),
		form.Text("endpointUri", "Endpoint / Uri", 4, true),
		form.SourcedDropdown("securityPolicy", "Politica de Seguridad", 4, true, false, SourceOPCSecurity),
		form.Text("username", "Nombre de usuario", 6, false),
		form.Password("password", "Contraseña", 6, false),
	}
}

// OPC manages OPC server connections.
func OPC() Entity {
	return Entity{
		Key:        KeyOPC,
		Title:      "OPC Server",
		Singular:   "Conexión OPC",
		Subtitle:   "Conexiones a servidores OPC",
		Route:      "/opc-server",
		Parents:    connectionsParents,
		Collection: Endpoint{Prefixed: true, Path: "opc-conexion"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Nombre", AccessorKey: "applicationName"},
			{Header: "Endpoint", AccessorKey: "endpointUri"},
			{Header: "Seguridad", AccessorKey: "securityPolicy"},
			{Header: "Usuario", AccessorKey: "username"},
			{Header: "Estado", AccessorKey: "enabled", Cell: activeCell},
		},
		Fields:     opcFields(),
		EditFields: opcFields(),
		Details: []Detail{
			{Label: "Nombre de Aplicacion", Key: "applicationName"},
			{Label: "Endpoint / Uri", Key: "endpointUri"},
			{Label: "Politica de seguridad", Key: "securityPolicy"},
			{Label: "Usuario", Key: "username"},
			{Label: "Estado", Key: "enabled", Format: activeText},
			{Label: "Fecha y hora de creación", Key: "dateCreate"},
		},
		Capabilities: table.Capabilities{View: true, Edit: true, Delete: true},
		Register:     true,
		Invalidates:  []string{SourceConnections},
		Messages:     Messages{Created: "Conexion registrada correctamente", Updated: "Conexion actualizada correctamente"},
	}
}

// ODBC manages database connections.
func ODBC() Entity {
	return Entity{
		Key:        KeyODBC,
		Title:      "ODBC",
		Singular:   "Conexión ODBC",
		Subtitle:   "Conexiones a bases de datos",
		Route:      "/odbc",
		Parents:    connectionsParents,
		Collection: Endpoint{Prefixed: true, Path: "odbc-conexion"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Nombre", AccessorKey: "name"},
			{Header: "Driver", AccessorKey: "driver"},
			{Header: "Base de datos", AccessorKey: "databaseName"},
			{Header: "Host", AccessorKey: "host"},
			{Header: "Puerto", AccessorKey: "port"},
			{Header: "Estado", AccessorKey: "enabled", Cell: activeCell},
		},
		Fields: []form.FieldDescriptor{
			form.Text("name", "Nombre", 6, true),
			form.Text("driver", "Controlador", 6, true),
			form.Text("host", "Servidor", 4, true),
			form.Text("port", "Puerto", 4, true),
			form.Text("databaseName", "Base de datos", 4, true),
			form.Text("username", "Usuario", 6, true),
			form.Password("password", "Contraseña", 6, true),
			form.Dropdown("trustServerCertificate", "Certificado de servidor de confianza", 12, false, false, enabledOptions...),
		},
		Capabilities: table.Capabilities{View: true, Delete: true},
		Register:     true,
		Invalidates:  []string{SourceConnections},
		Messages:     Messages{Created: "Conexion registrada correctamente"},
	}
}

// Measurement manages measurement systems and their acquisition templates.
func Measurement() Entity {
	return Entity{
		Key:        KeyMeasurement,
		Title:      "Sistemas de medición",
		Singular:   "Sistema de medición",
		Subtitle:   "Sistemas de medición y sus registros de adquisición",
		Route:      "/measurement-system",
		Parents:    []Breadcrumb{CatalogsCrumb},
		Collection: Endpoint{Prefixed: true, Path: "measurementsystems"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Nombre", AccessorKey: "tag"},
			{Header: "Tipo", AccessorKey: "connectionType"},
			{Header: "Elemento", AccessorKey: "elementType"},
			{Header: "Operacion", AccessorKey: "opsType"},
			{Header: "Estado", AccessorKey: "status", Cell: activeCell},
		},
		Fields: []form.FieldDescriptor{
			form.Text("tag", "Tag (Nombre)", 6, true),
			form.Dropdown("status", "Estado", 6, true, false, enabledOptions...),
			form.SourcedDropdown("connectionType", "Tipo de conexion", 4, true, false, SourceConnectionTypes),
			form.SourcedDropdown("elementType", "Tipo de elemento", 4, true, false, SourceElementTypes),
			form.SourcedDropdown("opsType", "Tipo de operacion", 4, true, false, SourceOpsTypes),
			form.Dropdown("recolectarDatos", "Inicia la recoleccion de datos", 4, false, false, yesNoOptions...),
			form.Dropdown("indepentModbus", "Modbus independiente", 4, false, false, yesNoOptions...),
			form.SourcedDropdown("measurementUnitId", "Unidades del sistema de medicion", 4, true, false, SourceMeasurementUnits),
		},
		Items: &ItemEditor{
			Key:   "configTemplate",
			Title: "Registros de adquisición",
			Fields: []form.FieldDescriptor{
				form.SourcedDropdown("name", "Nombre", 4, true, false, SourceTagNames),
				form.Text("dataType", "Tipo de dato", 4, true),
				form.SourcedDropdown("connection", "Conexion", 4, false, false, SourceConnections),
				form.Text("nodeId", "Nodo ID", 4, false),
				form.Dropdown("dataSwap", "Intercambio de datos", 4, false, false, yesNoOptions...),
				form.Number("addressStart", "Dirección Inicio", 2, false),
				form.Number("functionCode", "Codigo de función", 2, false),
				form.Text("tableName", "Nombre de la tabla", 4, false),
				form.Text("columnName", "Nombre de la columna", 4, false),
				form.Text("filter", "Filtro", 4, false),
			},
			Columns: []table.Column{
				{Header: "Nombre", AccessorKey: "name"},
				{Header: "Tipo de dato", AccessorKey: "dataType"},
				{Header: "Conexion", AccessorKey: "connection"},
				{Header: "Nodo ID", AccessorKey: "nodeId"},
				{Header: "Dirección Inicio", AccessorKey: "addressStart"},
				{Header: "Codigo de función", AccessorKey: "functionCode"},
				{Header: "Tabla", AccessorKey: "tableName"},
				{Header: "Columna", AccessorKey: "columnName"},
			},
		},
		Details: []Detail{
			{Label: "Nombre", Key: "tag"},
			{Label: "Tipo de conexión", Key: "connectionType"},
			{Label: "Elemento", Key: "elementType"},
			{Label: "Operación", Key: "opsType"},
			{Label: "Estado", Key: "status", Format: activeText},
		},
		DetailTables: []DetailTable{
			{Title: "Modbus Registers", Key: "modbusRegisters", PageSize: 4, Columns: []table.Column{
				{Header: "Tag", AccessorKey: "name"},
				{Header: "Registro", AccessorKey: "addressStart"},
				{Header: "Codigo de función", AccessorKey: "functionCode"},
				{Header: "Tipo de Dato", AccessorKey: "dataType"},
			}},
			{Title: "Opc Server Tags", Key: "tagsOpc", PageSize: 4, Columns: []table.Column{
				{Header: "Tag", AccessorKey: "name"},
				{Header: "Nodo ID", AccessorKey: "nodeId"},
				{Header: "Tipo de Dato", AccessorKey: "dataType"},
				{Header: "Habilitado", AccessorKey: "enabled", Cell: activeCell},
			}},
			{Title: "ODBC Registers", Key: "odbcConfigurations", PageSize: 4, Columns: []table.Column{
				{Header: "Tag", AccessorKey: "name"},
				{Header: "Tabla", AccessorKey: "tableName"},
				{Header: "Columna", AccessorKey: "columnName"},
				{Header: "Filtro", AccessorKey: "filter"},
				{Header: "Tipo de Dato", AccessorKey: "dataType"},
			}},
		},
		Capabilities: table.Capabilities{View: true, Delete: true},
		Register:     true,
		Defaults:     map[string]any{"configTemplate": []any{}},
		Nullable:     []string{"recolectarDatos", "indepentModbus"},
		Invalidates:  []string{SourceMeasurementSystems},
		Messages:     Messages{Created: "Sistema de medición registrado correctamente"},
	}
}

// Jobs manages the backend's scheduled acquisition jobs.
func Jobs() Entity {
	return Entity{
		Key:        KeyJobs,
		Title:      "Servicios",
		Singular:   "Servicio",
		Subtitle:   "Tareas programadas de adquisición",
		Route:      "/cron-services",
		Parents:    []Breadcrumb{SettingsCrumb},
		Collection: Endpoint{Prefixed: true, Path: "crons"},
		Remove:     Endpoint{Prefixed: true, Path: "crons/deletejob"},
		IDKey:      "jobId",
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "jobId"},
			{Header: "Nombre", AccessorKey: "jobName"},
			{Header: "Descripción", AccessorKey: "description"},
			{Header: "Grupo", AccessorKey: "jobGroup"},
			{Header: "Estado", AccessorKey: "jobStatus"},
			{Header: "Habilitado", AccessorKey: "enabled", Cell: activeCell},
		},
		Fields: []form.FieldDescriptor{
			form.Text("jobName", "Nombre", 6, true),
			form.SourcedDropdown("jobGroup", "Grupo", 6, true, false, SourceJobGroups),
			form.Text("description", "Descripcion", 12, true),
			form.Dropdown("expression", "Cron expression", 4, true, false, yesNoOptions...),
			form.Text("cronExpression", "Expression", 4, false),
			form.Number("repeatTime", "Tiempo de repeticion", 4, false),
			form.Text("objectId", "Id Objeto", 4, false),
			form.SourcedDropdown("objectIds", "Ids Objetos", 8, false, true, SourceMeasurementSystems),
			form.Text("groupOPC", "Grupo OPC", 4, false),
			form.Dropdown("modbusIndepent", "Modbus independiente", 4, true, false, yesNoOptions...),
			form.Dropdown("enabled", "Habilitado", 4, true, false, yesNoOptions...),
		},
		Capabilities: table.Capabilities{Delete: true},
		Register:     true,
		Actions: []Action{
			{Name: "run", Label: "Ejecutar", Icon: "bi-play-fill", Endpoint: Endpoint{Prefixed: true, Path: "crons/runjob"}, Success: "Tarea ejecutada correctamente"},
			{Name: "pause", Label: "Pausar", Icon: "bi-pause-fill", Endpoint: Endpoint{Prefixed: true, Path: "crons/pausejob"}, Success: "Tarea pausada correctamente"},
			{Name: "resume", Label: "Reanudar", Icon: "bi-skip-forward-fill", Endpoint: Endpoint{Prefixed: true, Path: "crons/resumejob"}, Success: "Tarea reanudada correctamente"},
		},
		Messages: Messages{Created: "Servicio registrado correctamente", Deleted: "Tarea eliminada correctamente"},
	}
}

func settingFields() []form.FieldDescriptor {
	return []form.FieldDescriptor{
		form.Text("name", "Nombre", 6, true),
		form.Text("value", "Valor", 6, true),
		form.Text("type", "Tipo de dato", 6, true),
		form.Text("group", "Grupo", 6, true),
	}
}

// Settings manages global configuration variables.
func Settings() Entity {
	return Entity{
		Key:        KeySettings,
		Title:      "Variables",
		Singular:   "Variable",
		Subtitle:   "Variables globales de configuración",
		Route:      "/global-variables",
		Parents:    []Breadcrumb{SettingsCrumb},
		Collection: Endpoint{Prefixed: true, Path: "global-settings"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Nombre", AccessorKey: "name"},
			{Header: "Valor", AccessorKey: "value"},
			{Header: "Categoria", AccessorKey: "group"},
			{Header: "Estado", AccessorKey: "enabled", Cell: activeCell},
			{Header: "Fecha de Creación", AccessorKey: "dateCreate", Cell: dateCell},
		},
		Fields:       settingFields(),
		EditFields:   settingFields(),
		Capabilities: table.Capabilities{View: true, Edit: true, Delete: true},
		Register:     true,
		Messages:     Messages{Created: "Variable registrada correctamente", Updated: "Variable actualizada correctamente"},
	}
}

// Units manages measurement unit sets.
func Units() Entity {
	return Entity{
		Key:        KeyUnits,
		Title:      "Unidades de medida",
		Singular:   "Unidad de medida",
		Subtitle:   "Unidades usadas por los sistemas de medición",
		Route:      "/units-measurement",
		Parents:    []Breadcrumb{CatalogsCrumb},
		Collection: Endpoint{Prefixed: true, Path: "measurementunits"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Nombre", AccessorKey: "name"},
			{Header: "Volumen Unidad", AccessorKey: "volumenUm"},
			{Header: "Temperatura Unidad", AccessorKey: "temperaturaUm"},
			{Header: "Presion Unidad", AccessorKey: "presionUm"},
			{Header: "Fecha Inicio Unidad", AccessorKey: "fechaInicio"},
			{Header: "Fecha Fin Unidad", AccessorKey: "fechaFin"},
		},
		Fields: []form.FieldDescriptor{
			form.Text("name", "Nombre", 6, true),
			form.Text("volumenUm", "Volumen UM", 6, false),
			form.Text("volumenInicialUm", "Volumen Inicial UM", 4, false),
			form.Text("volumenFinalUm", "Volumen Final UM", 4, false),
			form.Text("temperaturaUm", "Temperatura UM", 4, false),
			form.Text("presionUm", "Presion UM", 6, false),
			form.Text("fechaInicio", "Fecha Inicio Formato", 6, false),
			form.Text("fechaFin", "Fecha Fin Formato", 6, false),
			form.Text("fraccionMolarUm", "Fraccion Molar UM", 6, false),
			form.Text("poderCalorificoUm", "Poder Calorifico UM", 6, false),
		},
		EditFields: []form.FieldDescriptor{
			form.Text("name", "Nombre", 12, false),
			form.Text("volumenUm", "Volumen UM", 4, false),
			form.Text("volumenInicialUm", "Volumen Inicial UM", 4, false),
			form.Text("volumenFinalUm", "Volumen Final UM", 4, false),
			form.Text("temperaturaUm", "Temperatura UM", 6, false),
			form.Text("presionUm", "Presion UM", 6, false),
			form.Text("fechaInicio", "Formato Fecha Inicio", 6, false),
			form.Text("fechaFin", "Formato Fecha Fin", 6, false),
			form.Text("fraccionMolarUm", "Fracción Molar UM", 6, false),
			form.Text("poderCalorificoUm", "Poder Calorifico UM", 6, false),
		},
		Capabilities: table.Capabilities{View: true, Edit: true, Delete: true},
		Register:     true,
		Invalidates:  []string{SourceMeasurementUnits},
		Messages:     Messages{Created: "Unidad de medida registrado correctamente", Updated: "Unidad de medida actualizada con exito."},
	}
}

// LinkConfig lists the links between CV360 installation elements and measurement system elements.
// Links are registered in batches per measurement system by a dedicated page.
func LinkConfig() Entity {
	return Entity{
		Key:        KeyLinkConfig,
		Title:      "Enlace cv360",
		Singular:   "Enlace CV360",
		Subtitle:   "Enlaces entre elementos CV360 y sistemas de medición",
		Route:      "/link-config",
		Parents:    []Breadcrumb{CatalogsCrumb},
		Collection: Endpoint{Prefixed: true, Path: "linkconfigurations"},
		Columns: []table.Column{
			{Header: "ID", AccessorKey: "id"},
			{Header: "Instalacion Cv360", AccessorKey: "instalacionCvId"},
			{Header: "Elemento Cv360", AccessorKey: "elementoCvId"},
			{Header: "Elemento UCC", AccessorKey: "elementoUccId"},
		},
		Capabilities:   table.Capabilities{Delete: true},
		Register:       true,
		CustomRegister: true,
		Messages:       Messages{Created: "Enlaces registrados correctamente", Deleted: "Enlace eliminado correctamente"},
	}
}
