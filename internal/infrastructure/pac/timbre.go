package pac

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/servo98/express-invoices/internal/domain/entity"
)

// completeFromTimbre rellena los artefactos que el PAC no devolvió por separado
// leyendo el complemento tfd:TimbreFiscalDigital del CFDI sellado.
func completeFromTimbre(res *entity.StampResult) {
	if res.XML == "" {
		return
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(res.XML); err != nil {
		return
	}
	tfd := findElement(doc.Root(), "TimbreFiscalDigital")
	if tfd == nil {
		return
	}
	get := func(key string) string { return tfd.SelectAttrValue(key, "") }

	fill(&res.UUID, get("UUID"))
	fill(&res.FechaTimbrado, get("FechaTimbrado"))
	fill(&res.SelloCFD, get("SelloCFD"))
	fill(&res.SelloSAT, get("SelloSAT"))
	fill(&res.NoCertificadoSAT, get("NoCertificadoSAT"))

	if res.CadenaOriginal == "" && res.UUID != "" {
		// ||Version|UUID|FechaTimbrado|RfcProvCertif|[Leyenda|]SelloCFD|NoCertificadoSAT||
		parts := []string{get("Version"), get("UUID"), get("FechaTimbrado"), get("RfcProvCertif")}
		if l := get("Leyenda"); l != "" {
			parts = append(parts, l)
		}
		parts = append(parts, get("SelloCFD"), get("NoCertificadoSAT"))
		res.CadenaOriginal = "||" + strings.Join(parts, "|") + "||"
	}
}

func findElement(e *etree.Element, tag string) *etree.Element {
	if e == nil {
		return nil
	}
	if e.Tag == tag {
		return e
	}
	for _, c := range e.ChildElements() {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func fill(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}
