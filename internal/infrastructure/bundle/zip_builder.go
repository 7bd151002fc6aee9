// Package bundle empaqueta los documentos de una factura en un ZIP en memoria.
package bundle

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// File entrada del paquete.
type File struct {
	Name string
	Data []byte
}

// ZipBuilder arma archivos ZIP con fecha de modificación fija para que el mismo
// contenido produzca los mismos bytes.
type ZipBuilder struct {
	modified time.Time
}

// NewZipBuilder crea el empaquetador. modified es la fecha que llevarán las entradas;
// con cero se usa 1980-01-01, el mínimo del formato ZIP.
func NewZipBuilder(modified time.Time) *ZipBuilder {
	if modified.IsZero() {
		modified = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return &ZipBuilder{modified: modified}
}

// Build comprime los archivos en el orden recibido.
func (b *ZipBuilder) Build(files ...File) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, f := range files {
		if f.Name == "" {
			return nil, fmt.Errorf("zip: entrada sin nombre")
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Method:   zip.Deflate,
			Modified: b.modified,
		})
		if err != nil {
			return nil, fmt.Errorf("zip: crear entrada %s: %w", f.Name, err)
		}
		if _, err := fw.Write(f.Data); err != nil {
			return nil, fmt.Errorf("zip: escribir %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: cerrar archivo: %w", err)
	}
	return buf.Bytes(), nil
}
