// Package journal registra los intentos de timbrado en un archivo bolt local
// para que un resultado ambiguo (timeout) nunca se reenvíe al PAC sin revisión.
package journal

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "github.com/boltdb/bolt"
	"github.com/ucarion/c14n"

	"github.com/servo98/express-invoices/internal/domain"
)

const bucketName = "stamp_attempts"

// Estados de un intento.
const (
	StatusPending  = "pending"
	StatusStamped  = "stamped"
	StatusFailed   = "failed"
	StatusTimeout  = "timeout"
	StatusResolved = "resolved"
)

// StatusUnpersisted el PAC timbró pero la base de datos no guardó el resultado.
const StatusUnpersisted = "unpersisted"

// ErrNotFound no hay intentos registrados para la factura.
var ErrNotFound = errors.New("journal: sin intentos para la factura")

// Attempt último intento de timbrado de una factura.
type Attempt struct {
	InvoiceID  string     `json:"invoice_id"`
	Provider   string     `json:"provider"`
	Digest     string     `json:"digest"` // SHA-256 del XML canónico enviado
	Status     string     `json:"status"`
	UUID       string     `json:"uuid,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Blocking indica si el intento impide un nuevo timbrado: quedó sin resultado,
// expiró esperando al PAC o se timbró sin persistir.
func (a *Attempt) Blocking() bool {
	switch a.Status {
	case StatusPending, StatusTimeout, StatusUnpersisted:
		return true
	}
	return false
}

// Store bitácora sobre bolt. Una clave por factura con su último intento.
type Store struct {
	db  *bolt.DB
	now func() time.Time
}

// Open abre (o crea) el archivo y asegura el bucket.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: crear directorio: %w", err)
		}
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("journal: abrir %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("journal: crear bucket: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close libera el bloqueo del archivo.
func (s *Store) Close() error {
	return s.db.Close()
}

// Begin registra un intento nuevo. Devuelve domain.ErrStampPending si el último
// intento de la factura sigue sin resultado confirmado.
func (s *Store) Begin(_ context.Context, invoiceID, provider string, xmlBase []byte) error {
	digest := Digest(xmlBase)
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		if prev, err := decode(b.Get([]byte(invoiceID))); err != nil {
			return err
		} else if prev != nil && prev.Blocking() {
			return domain.ErrStampPending
		}
		return put(b, &Attempt{
			InvoiceID: invoiceID,
			Provider:  provider,
			Digest:    digest,
			Status:    StatusPending,
			StartedAt: s.now(),
		})
	})
}

// Finish guarda el resultado del intento en curso.
func (s *Store) Finish(_ context.Context, invoiceID, status, uuid string, cause error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		a, err := decode(b.Get([]byte(invoiceID)))
		if err != nil {
			return err
		}
		if a == nil {
			return ErrNotFound
		}
		now := s.now()
		a.Status = status
		a.UUID = uuid
		a.FinishedAt = &now
		if cause != nil {
			a.Error = cause.Error()
		}
		return put(b, a)
	})
}

// Resolve libera una factura bloqueada después de verificar su estado con el PAC.
func (s *Store) Resolve(invoiceID string) (*Attempt, error) {
	var out *Attempt
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))
		a, err := decode(b.Get([]byte(invoiceID)))
		if err != nil {
			return err
		}
		if a == nil {
			return ErrNotFound
		}
		a.Status = StatusResolved
		out = a
		return put(b, a)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get devuelve el último intento de la factura.
func (s *Store) Get(invoiceID string) (*Attempt, error) {
	var out *Attempt
	err := s.db.View(func(tx *bolt.Tx) error {
		a, err := decode(tx.Bucket([]byte(bucketName)).Get([]byte(invoiceID)))
		if err != nil {
			return err
		}
		if a == nil {
			return ErrNotFound
		}
		out = a
		return nil
	})
	return out, err
}

// Pending lista las facturas bloqueadas.
func (s *Store) Pending() ([]Attempt, error) {
	items := []Attempt{}
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(_, v []byte) error {
			a, err := decode(v)
			if err != nil {
				return err
			}
			if a.Blocking() {
				items = append(items, *a)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Digest SHA-256 (hex) de la forma canónica C14N del documento. Si el XML no es
// canonizable se usa el contenido tal cual.
func Digest(doc []byte) string {
	data := doc
	if canon, err := canonicalize(doc); err == nil {
		data = canon
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func canonicalize(doc []byte) ([]byte, error) {
	doc = bytes.TrimSpace(doc)
	// La declaración XML no forma parte de la forma canónica.
	if bytes.HasPrefix(doc, []byte("<?xml")) {
		if end := bytes.Index(doc, []byte("?>")); end >= 0 {
			doc = bytes.TrimSpace(doc[end+2:])
		}
	}
	dec := xml.NewDecoder(bytes.NewReader(doc))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func decode(v []byte) (*Attempt, error) {
	if v == nil {
		return nil, nil
	}
	var a Attempt
	if err := json.Unmarshal(v, &a); err != nil {
		return nil, fmt.Errorf("journal: decodificar intento: %w", err)
	}
	return &a, nil
}

func put(b *bolt.Bucket, a *Attempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return b.Put([]byte(a.InvoiceID), data)
}
