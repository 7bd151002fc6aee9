// Package mail envía facturas por correo con el SMTP propio de cada usuario.
package mail

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// DefaultPort puerto SMTP con STARTTLS cuando el usuario no define uno; 465 usa TLS implícito.
const DefaultPort = 587

// SMTPConfig credenciales SMTP del usuario.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string // por defecto, Username
}

// Attachment archivo adjunto en memoria.
type Attachment struct {
	Name string
	Data []byte
}

// Message correo de texto plano con adjuntos.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// sendFunc punto de reemplazo del envío real en pruebas.
type sendFunc func(d *gomail.Dialer, m *gomail.Message) error

// Sender envía mensajes vía gomail.
type Sender struct {
	send sendFunc
}

// NewSender crea el emisor SMTP.
func NewSender() *Sender {
	return &Sender{send: func(d *gomail.Dialer, m *gomail.Message) error { return d.DialAndSend(m) }}
}

// Send abre la conexión, envía y cierra. gomail no acepta contexto: si ctx vence
// antes de terminar se devuelve su error y el envío sigue en segundo plano.
func (s *Sender) Send(ctx context.Context, cfg SMTPConfig, msg Message) error {
	if cfg.Host == "" || cfg.Username == "" || cfg.Password == "" {
		return fmt.Errorf("smtp: configuración incompleta")
	}
	if msg.To == "" {
		return fmt.Errorf("smtp: destinatario vacío")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultPort
	}
	// NewDialer activa TLS implícito cuando el puerto es 465.
	d := gomail.NewDialer(cfg.Host, port, cfg.Username, cfg.Password)
	m := buildMessage(cfg, msg)

	done := make(chan error, 1)
	go func() { done <- s.send(d, m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp: enviar a %s: %w", msg.To, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("smtp: %w", ctx.Err())
	}
}

func buildMessage(cfg SMTPConfig, msg Message) *gomail.Message {
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Body)
	for _, a := range msg.Attachments {
		data := a.Data
		m.Attach(a.Name, gomail.SetCopyFunc(func(w io.Writer) error {
			_, err := w.Write(data)
			return err
		}))
	}
	return m
}
