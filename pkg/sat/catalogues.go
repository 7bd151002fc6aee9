// Package sat contiene catálogos y validaciones del SAT (México) usados por el CFDI 4.0.
package sat

// Namespace y ubicación del esquema CFDI 4.0 tal como los publica el SAT.
const (
	NamespaceCFDI          = "http://www.sat.gob.mx/cfd/4"
	NamespaceXSI           = "http://www.w3.org/2001/XMLSchema-instance"
	SchemaLocationCFDI     = "http://www.sat.gob.mx/cfd/4 http://www.sat.gob.mx/sitio_internet/cfd/4/cfdv40.xsd"
	CFDIVersion            = "4.0"
	TipoComprobanteIngreso = "I"
)

// RFC genéricos.
const (
	RFCGenericoExtranjero    = "XEXX010101000"
	RFCGenericoNacional      = "XAXX010101000"
	NombreGenericoExtranjero = "Rfc generico extranjero"
)

// Valores por defecto del flujo de exportación de servicios a clientes extranjeros.
const (
	DefaultFormaPago             = "99"  // Por definir
	DefaultMetodoPago            = "PPD" // Pago en parcialidades o diferido
	DefaultMoneda                = "USD"
	DefaultExportacion           = "01"  // No aplica
	DefaultUsoCFDI               = "S01" // Sin efectos fiscales
	DefaultRegimenFiscalEmisor   = "626" // Régimen Simplificado de Confianza
	DefaultRegimenFiscalReceptor = "616" // Sin obligaciones fiscales
	DefaultResidenciaFiscal      = "USA"
	DefaultClaveProdServ         = "81111810" // Servicios de codificación de software
	DefaultClaveUnidad           = "E48"      // Unidad de servicio
	DefaultUnidad                = "Unidad de servicio"
	DefaultObjetoImp             = "02" // Sí objeto de impuesto
)

// Impuestos (catálogo c_Impuesto).
const (
	ImpuestoISR    = "001"
	ImpuestoIVA    = "002"
	TipoFactorTasa = "Tasa"
)

// MonedaNacional no requiere TipoCambio en el comprobante.
const MonedaNacional = "MXN"

// Motivos de cancelación (catálogo del SAT vigente desde 2022).
const (
	MotivoErroresConRelacion  = "01" // Requiere folio de sustitución
	MotivoErroresSinRelacion  = "02"
	MotivoNoSeLlevoACabo      = "03"
	MotivoOperacionNominativa = "04"
)

// ValidCancellationMotives motivos aceptados por el SAT.
var ValidCancellationMotives = map[string]bool{
	MotivoErroresConRelacion:  true,
	MotivoErroresSinRelacion:  true,
	MotivoNoSeLlevoACabo:      true,
	MotivoOperacionNominativa: true,
}
