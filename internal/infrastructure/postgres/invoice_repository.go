package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/servo98/express-invoices/internal/domain"
	"github.com/servo98/express-invoices/internal/domain/entity"
	"github.com/servo98/express-invoices/internal/domain/repository"
	"github.com/servo98/express-invoices/pkg/period"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

const periodConstraint = "invoices_user_period_key"

const invoiceColumns = `
	id, user_id, uuid, month, year, fecha,
	forma_pago, metodo_pago, moneda, tipo_cambio, lugar_expedicion, exportacion, tipo_comprobante,
	receptor_rfc, receptor_nombre, receptor_cp, residencia_fiscal, num_reg_id_trib,
	regimen_fiscal_receptor, uso_cfdi,
	billed_to_name, billed_to_address, billed_to_phone, payment_reference,
	subtotal, total_impuestos_trasladados, total_impuestos_retenidos, total,
	status, cfdi_xml, cfdi_sello_cfd, cfdi_sello_sat, cfdi_fecha_timbrado,
	cfdi_no_certificado_sat, cfdi_cadena_original, cancelled_at,
	created_at, updated_at`

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
// Encabezado, conceptos e impuestos se escriben siempre en una sola transacción.
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// ── Lecturas ──────────────────────────────────────────────────────────────────

// FindByID obtiene la factura completa del usuario.
func (r *InvoiceRepo) FindByID(ctx context.Context, id, userID string) (*entity.Invoice, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1 AND user_id = $2`
	return r.findOne(ctx, query, id, userID)
}

// FindByMonthYear obtiene la factura del periodo.
func (r *InvoiceRepo) FindByMonthYear(ctx context.Context, userID string, p period.MonthYear) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1 AND month = $2 AND year = $3`
	return r.findOne(ctx, query, userID, p.Month, p.Year)
}

// GetLatestByUser la factura más reciente por año y mes.
func (r *InvoiceRepo) GetLatestByUser(ctx context.Context, userID string) (*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1
		ORDER BY year DESC, month DESC LIMIT 1`
	return r.findOne(ctx, query, userID)
}

// FindAllByUser lista las facturas del usuario, más recientes primero.
func (r *InvoiceRepo) FindAllByUser(ctx context.Context, userID string) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1
		ORDER BY year DESC, month DESC`
	return r.findMany(ctx, query, userID)
}

// FindAllByYear lista las facturas de un año, más recientes primero.
func (r *InvoiceRepo) FindAllByYear(ctx context.Context, userID string, year int) ([]*entity.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE user_id = $1 AND year = $2
		ORDER BY month DESC`
	return r.findMany(ctx, query, userID, year)
}

func (r *InvoiceRepo) findOne(ctx context.Context, query string, args ...any) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	if err := r.loadLines(ctx, []*entity.Invoice{inv}); err != nil {
		return nil, err
	}
	return inv, nil
}

func (r *InvoiceRepo) findMany(ctx context.Context, query string, args ...any) ([]*entity.Invoice, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	list := []*entity.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		list = append(list, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	rows.Close()

	if err := r.loadLines(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// loadLines carga conceptos (en orden de captura) e impuestos de todas las facturas en dos consultas.
func (r *InvoiceRepo) loadLines(ctx context.Context, invoices []*entity.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	ids := make([]string, len(invoices))
	byID := make(map[string]*entity.Invoice, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
		byID[inv.ID] = inv
		inv.Items = []entity.InvoiceItem{}
		inv.Taxes = []entity.InvoiceTax{}
	}

	rows, err := r.q.Query(ctx, `
		SELECT id, invoice_id, position, clave_prod_serv, clave_unidad, unidad,
		       cantidad, descripcion, valor_unitario, importe, objeto_imp
		FROM invoice_items WHERE invoice_id = ANY($1::text[]::uuid[]) ORDER BY invoice_id, position`, ids)
	if err != nil {
		return fmt.Errorf("list invoice items: %w", err)
	}
	for rows.Next() {
		var it entity.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Position, &it.ClaveProdServ, &it.ClaveUnidad,
			&it.Unidad, &it.Cantidad, &it.Descripcion, &it.ValorUnitario, &it.Importe, &it.ObjetoImp); err != nil {
			rows.Close()
			return fmt.Errorf("scan invoice item: %w", err)
		}
		inv := byID[it.InvoiceID]
		inv.Items = append(inv.Items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("list invoice items: %w", err)
	}

	rows, err = r.q.Query(ctx, `
		SELECT id, invoice_id, tipo, impuesto, base, tipo_factor, tasa_o_cuota, importe
		FROM invoice_taxes WHERE invoice_id = ANY($1::text[]::uuid[])
		ORDER BY invoice_id, CASE tipo WHEN 'traslado' THEN 0 ELSE 1 END`, ids)
	if err != nil {
		return fmt.Errorf("list invoice taxes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var tx entity.InvoiceTax
		if err := rows.Scan(&tx.ID, &tx.InvoiceID, &tx.Tipo, &tx.Impuesto, &tx.Base,
			&tx.TipoFactor, &tx.TasaOCuota, &tx.Importe); err != nil {
			return fmt.Errorf("scan invoice tax: %w", err)
		}
		inv := byID[tx.InvoiceID]
		inv.Taxes = append(inv.Taxes, tx)
	}
	return rows.Err()
}

// ── Escrituras ────────────────────────────────────────────────────────────────

// Create persiste encabezado, conceptos e impuestos. La unicidad (usuario, mes, año)
// la garantiza el constraint de la tabla.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = now
	}
	inv.UpdatedAt = now

	err := inTx(ctx, r.q, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO invoices (
				id, user_id, uuid, month, year, fecha,
				forma_pago, metodo_pago, moneda, tipo_cambio, lugar_expedicion, exportacion, tipo_comprobante,
				receptor_rfc, receptor_nombre, receptor_cp, residencia_fiscal, num_reg_id_trib,
				regimen_fiscal_receptor, uso_cfdi,
				billed_to_name, billed_to_address, billed_to_phone, payment_reference,
				subtotal, total_impuestos_trasladados, total_impuestos_retenidos, total,
				status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
				$19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30, $31)`,
			inv.ID, inv.UserID, nullIfEmpty(inv.UUID), inv.Month, inv.Year, inv.Fecha,
			inv.FormaPago, inv.MetodoPago, inv.Moneda, inv.TipoCambio, inv.LugarExpedicion, inv.Exportacion, inv.TipoComprobante,
			inv.ReceptorRfc, inv.ReceptorNombre, inv.ReceptorCp, inv.ResidenciaFiscal, inv.NumRegIdTrib,
			inv.RegimenFiscalReceptor, inv.UsoCfdi,
			inv.BilledToName, inv.BilledToAddress, inv.BilledToPhone, inv.PaymentReference,
			inv.Subtotal, inv.TotalImpuestosTrasladados, inv.TotalImpuestosRetenidos, inv.Total,
			inv.Status, inv.CreatedAt, inv.UpdatedAt,
		)
		if err != nil {
			return err
		}
		return insertLines(ctx, tx, inv)
	})
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == periodConstraint {
			return domain.ErrDuplicatePeriod
		}
		return fmt.Errorf("insert invoice: %w", err)
	}
	return nil
}

// Update reemplaza encabezado y líneas. El filtro por estado hace la verificación
// y la escritura en la misma sentencia.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	inv.UpdatedAt = time.Now().UTC()

	err := inTx(ctx, r.q, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE invoices SET
				month = $3, year = $4, fecha = $5,
				forma_pago = $6, metodo_pago = $7, moneda = $8, tipo_cambio = $9,
				lugar_expedicion = $10, exportacion = $11, tipo_comprobante = $12,
				receptor_rfc = $13, receptor_nombre = $14, receptor_cp = $15,
				residencia_fiscal = $16, num_reg_id_trib = $17,
				regimen_fiscal_receptor = $18, uso_cfdi = $19,
				billed_to_name = $20, billed_to_address = $21, billed_to_phone = $22,
				payment_reference = $23,
				subtotal = $24, total_impuestos_trasladados = $25, total_impuestos_retenidos = $26,
				total = $27, status = $28, updated_at = $29
			WHERE id = $1 AND user_id = $2 AND status <> 'timbrado'`,
			inv.ID, inv.UserID, inv.Month, inv.Year, inv.Fecha,
			inv.FormaPago, inv.MetodoPago, inv.Moneda, inv.TipoCambio,
			inv.LugarExpedicion, inv.Exportacion, inv.TipoComprobante,
			inv.ReceptorRfc, inv.ReceptorNombre, inv.ReceptorCp,
			inv.ResidenciaFiscal, inv.NumRegIdTrib,
			inv.RegimenFiscalReceptor, inv.UsoCfdi,
			inv.BilledToName, inv.BilledToAddress, inv.BilledToPhone,
			inv.PaymentReference,
			inv.Subtotal, inv.TotalImpuestosTrasladados, inv.TotalImpuestosRetenidos,
			inv.Total, inv.Status, inv.UpdatedAt,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.missOrStamped(ctx, tx, inv.ID, inv.UserID, domain.ErrInvoiceStamped)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoice_taxes WHERE invoice_id = $1`, inv.ID); err != nil {
			return err
		}
		return insertLines(ctx, tx, inv)
	})
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == periodConstraint {
			return domain.ErrDuplicatePeriod
		}
		if errors.Is(err, domain.ErrInvoiceStamped) || errors.Is(err, domain.ErrInvoiceNotFound) {
			return err
		}
		return fmt.Errorf("update invoice: %w", err)
	}
	return nil
}

// MarkStamped persiste el timbrado solo si la fila aún no estaba timbrada.
func (r *InvoiceRepo) MarkStamped(ctx context.Context, inv *entity.Invoice) error {
	stamp := inv.StampResult()
	if stamp == nil {
		return fmt.Errorf("%w: factura sin artefactos de timbrado", domain.ErrInvalidInput)
	}
	if missing := stamp.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: timbre incompleto, falta: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	inv.UpdatedAt = time.Now().UTC()
	s := stamp
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices SET
			status = 'timbrado', uuid = $3,
			cfdi_xml = $4, cfdi_sello_cfd = $5, cfdi_sello_sat = $6,
			cfdi_fecha_timbrado = $7, cfdi_no_certificado_sat = $8, cfdi_cadena_original = $9,
			updated_at = $10
		WHERE id = $1 AND user_id = $2 AND status <> 'timbrado'`,
		inv.ID, inv.UserID, nullIfEmpty(s.UUID),
		nullIfEmpty(s.XML), nullIfEmpty(s.SelloCFD), nullIfEmpty(s.SelloSAT),
		nullIfEmpty(s.FechaTimbrado), nullIfEmpty(s.NoCertificadoSAT), nullIfEmpty(s.CadenaOriginal),
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("mark invoice stamped: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrStamped(ctx, r.q, inv.ID, inv.UserID, domain.ErrAlreadyStamped)
	}
	return nil
}

// MarkCancelled registra la cancelación de una factura timbrada.
func (r *InvoiceRepo) MarkCancelled(ctx context.Context, inv *entity.Invoice) error {
	if inv.CancelledAt == nil {
		now := time.Now().UTC()
		inv.CancelledAt = &now
	}
	inv.UpdatedAt = time.Now().UTC()
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices SET cancelled_at = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2 AND status = 'timbrado'`,
		inv.ID, inv.UserID, inv.CancelledAt, inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("mark invoice cancelled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotStamped
	}
	return nil
}

// Delete elimina una factura no timbrada (conceptos e impuestos caen en cascada).
func (r *InvoiceRepo) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.q.Exec(ctx,
		`DELETE FROM invoices WHERE id = $1 AND user_id = $2 AND status <> 'timbrado'`, id, userID)
	if err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.missOrStamped(ctx, r.q, id, userID, domain.ErrInvoiceStamped)
	}
	return nil
}

// missOrStamped distingue "no existe" de "ya timbrada" cuando una escritura condicional no afectó filas.
func (r *InvoiceRepo) missOrStamped(ctx context.Context, q Querier, id, userID string, stamped error) error {
	var status string
	err := q.QueryRow(ctx, `SELECT status FROM invoices WHERE id = $1 AND user_id = $2`, id, userID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrInvoiceNotFound
		}
		return fmt.Errorf("get invoice status: %w", err)
	}
	return stamped
}

func insertLines(ctx context.Context, tx pgx.Tx, inv *entity.Invoice) error {
	batch := &pgx.Batch{}
	for i := range inv.Items {
		it := &inv.Items[i]
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		it.InvoiceID = inv.ID
		it.Position = i
		batch.Queue(`
			INSERT INTO invoice_items (id, invoice_id, position, clave_prod_serv, clave_unidad, unidad,
				cantidad, descripcion, valor_unitario, importe, objeto_imp)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			it.ID, it.InvoiceID, it.Position, it.ClaveProdServ, it.ClaveUnidad, it.Unidad,
			it.Cantidad, it.Descripcion, it.ValorUnitario, it.Importe, it.ObjetoImp)
	}
	for i := range inv.Taxes {
		t := &inv.Taxes[i]
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		t.InvoiceID = inv.ID
		batch.Queue(`
			INSERT INTO invoice_taxes (id, invoice_id, tipo, impuesto, base, tipo_factor, tasa_o_cuota, importe)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			t.ID, t.InvoiceID, t.Tipo, t.Impuesto, t.Base, t.TipoFactor, t.TasaOCuota, t.Importe)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert invoice lines: %w", err)
	}
	return nil
}

// scanInvoice lee una fila con invoiceColumns.
func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var uuidStr, xml, selloCFD, selloSAT, fechaTimbrado, noCert, cadena *string
	err := row.Scan(
		&inv.ID, &inv.UserID, &uuidStr, &inv.Month, &inv.Year, &inv.Fecha,
		&inv.FormaPago, &inv.MetodoPago, &inv.Moneda, &inv.TipoCambio, &inv.LugarExpedicion,
		&inv.Exportacion, &inv.TipoComprobante,
		&inv.ReceptorRfc, &inv.ReceptorNombre, &inv.ReceptorCp, &inv.ResidenciaFiscal, &inv.NumRegIdTrib,
		&inv.RegimenFiscalReceptor, &inv.UsoCfdi,
		&inv.BilledToName, &inv.BilledToAddress, &inv.BilledToPhone, &inv.PaymentReference,
		&inv.Subtotal, &inv.TotalImpuestosTrasladados, &inv.TotalImpuestosRetenidos, &inv.Total,
		&inv.Status, &xml, &selloCFD, &selloSAT, &fechaTimbrado, &noCert, &cadena, &inv.CancelledAt,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.UUID = derefStr(uuidStr)
	if xml != nil {
		inv.Stamp = &entity.CFDIStamp{
			XML:              *xml,
			SelloCFD:         derefStr(selloCFD),
			SelloSAT:         derefStr(selloSAT),
			FechaTimbrado:    derefStr(fechaTimbrado),
			NoCertificadoSAT: derefStr(noCert),
			CadenaOriginal:   derefStr(cadena),
		}
	}
	return &inv, nil
}
