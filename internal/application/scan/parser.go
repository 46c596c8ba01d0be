package scan

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// BarcodeLookup resolves a raw code to a registered barcode mapping. The
// production wiring puts a redis read-through cache in front of the
// repository; tests use the repository directly.
type BarcodeLookup interface {
	FindByCode(ctx context.Context, code string) (*inventory.Barcode, error)
}

// Parsed is the normalised form of one scan payload.
type Parsed struct {
	ItemID         int64      `json:"item_id"`
	Qty            int64      `json:"qty"`
	BatchCode      *string    `json:"batch_code,omitempty"`
	ProductionDate *time.Time `json:"production_date,omitempty"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
	WarehouseID    int64      `json:"warehouse_id,omitempty"`
	TaskLineID     int64      `json:"task_line_id,omitempty"`
	// Source names the resolution layer that decoded the payload:
	// kv, barcode, or gs1.
	Source string `json:"source"`
}

// Parser normalises scan payloads through three resolution layers, in
// order: explicit KV tokens, the barcode table, and GS1 (AIs 01/17/10 in
// aimed and compact form). A payload no layer can decode fails with
// UnknownBarcode.
type Parser struct {
	lookup BarcodeLookup
}

// NewParser creates a Parser over the given barcode lookup.
func NewParser(lookup BarcodeLookup) *Parser {
	return &Parser{lookup: lookup}
}

// Parse decodes one payload. warehouseID scopes barcode-table matches; a
// mapping bound to another warehouse does not resolve.
func (p *Parser) Parse(ctx context.Context, raw string, warehouseID int64) (*Parsed, error) {
	payload := strings.TrimSpace(raw)
	if payload == "" {
		return nil, &inventory.UnknownBarcodeError{Barcode: raw}
	}

	if parsed, ok, err := parseKV(payload); ok {
		return parsed, err
	}

	if parsed, err := p.resolveTable(ctx, payload, warehouseID); err == nil {
		return parsed, nil
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if gtin, expiry, batch, ok := parseGS1(payload); ok {
		parsed, err := p.resolveTable(ctx, gtin, warehouseID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, &inventory.UnknownBarcodeError{Barcode: raw}
			}
			return nil, err
		}
		parsed.Source = "gs1"
		parsed.ExpiryDate = expiry
		if batch != "" {
			parsed.BatchCode = &batch
		}
		return parsed, nil
	}

	return nil, &inventory.UnknownBarcodeError{Barcode: raw}
}

// resolveTable is layer 2: the whole payload is one registered code.
func (p *Parser) resolveTable(ctx context.Context, code string, warehouseID int64) (*Parsed, error) {
	mapping, err := p.lookup.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if warehouseID != 0 && !mapping.MatchesWarehouse(warehouseID) {
		return nil, shared.ErrNotFound
	}
	parsed := &Parsed{ItemID: mapping.ItemID, Qty: 1, Source: "barcode"}
	if mapping.WarehouseID != nil {
		parsed.WarehouseID = *mapping.WarehouseID
	}
	return parsed, nil
}

// parseKV is layer 1. The payload is whitespace-separated KEY:VALUE tokens;
// the first token must carry a known key or the payload is not KV at all.
// A recognised KV payload that lacks an item token is a dead end, not a
// fall-through: partial grammar is an operator error, not a barcode.
func parseKV(payload string) (*Parsed, bool, error) {
	fields := strings.Fields(payload)
	if !isKVToken(fields[0]) {
		return nil, false, nil
	}

	parsed := &Parsed{Qty: 1, Source: "kv"}
	for _, field := range fields {
		key, value, ok := strings.Cut(field, ":")
		if !ok {
			return nil, true, &inventory.UnknownBarcodeError{Barcode: payload}
		}
		var err error
		switch strings.ToUpper(key) {
		case "ITM", "ITEM", "ITEM_ID":
			parsed.ItemID, err = strconv.ParseInt(value, 10, 64)
		case "QTY":
			parsed.Qty, err = strconv.ParseInt(value, 10, 64)
		case "B", "BATCH", "BATCH_CODE":
			if value != "" {
				code := value
				parsed.BatchCode = &code
			}
		case "PD", "MFG":
			parsed.ProductionDate, err = parseScanDate(value)
		case "EXP", "EXPIRY":
			parsed.ExpiryDate, err = parseScanDate(value)
		case "WH", "WAREHOUSE", "WAREHOUSE_ID":
			parsed.WarehouseID, err = strconv.ParseInt(value, 10, 64)
		case "TLID":
			parsed.TaskLineID, err = strconv.ParseInt(value, 10, 64)
		default:
			return nil, true, &inventory.UnknownBarcodeError{Barcode: payload}
		}
		if err != nil {
			return nil, true, &inventory.UnknownBarcodeError{Barcode: payload}
		}
	}
	if parsed.ItemID <= 0 {
		return nil, true, &inventory.UnknownBarcodeError{Barcode: payload}
	}
	return parsed, true, nil
}

func isKVToken(field string) bool {
	key, _, ok := strings.Cut(field, ":")
	if !ok {
		return false
	}
	switch strings.ToUpper(key) {
	case "ITM", "ITEM", "ITEM_ID", "QTY", "B", "BATCH", "BATCH_CODE",
		"PD", "MFG", "EXP", "EXPIRY", "WH", "WAREHOUSE", "WAREHOUSE_ID", "TLID":
		return true
	}
	return false
}

// parseScanDate accepts compact yyyymmdd and ISO yyyy-mm-dd forms.
func parseScanDate(value string) (*time.Time, error) {
	for _, layout := range []string{"20060102", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			d := inventory.DateOnly(t)
			return &d, nil
		}
	}
	return nil, errors.New("unrecognised date: " + value)
}

// parseGS1 is layer 3. It understands the aimed (parenthesised) and
// compact forms of AIs 01 (GTIN-14), 17 (expiry YYMMDD), and 10 (batch,
// variable length, terminated by FNC1 or end of data).
func parseGS1(payload string) (gtin string, expiry *time.Time, batch string, ok bool) {
	if strings.HasPrefix(payload, "(") {
		return parseGS1Aimed(payload)
	}
	return parseGS1Compact(payload)
}

func parseGS1Aimed(payload string) (gtin string, expiry *time.Time, batch string, ok bool) {
	rest := payload
	for strings.HasPrefix(rest, "(") {
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return "", nil, "", false
		}
		ai := rest[1:end]
		rest = rest[end+1:]

		value := rest
		if next := strings.IndexByte(rest, '('); next >= 0 {
			value = rest[:next]
			rest = rest[next:]
		} else {
			rest = ""
		}

		switch ai {
		case "01":
			gtin = value
		case "17":
			expiry = parseGS1Date(value)
		case "10":
			batch = value
		default:
			// unknown AI: skip the value, keep walking
		}
	}
	return gtin, expiry, batch, gtin != ""
}

func parseGS1Compact(payload string) (gtin string, expiry *time.Time, batch string, ok bool) {
	rest := payload
	for len(rest) >= 2 {
		ai := rest[:2]
		rest = rest[2:]
		switch ai {
		case "01":
			if len(rest) < 14 {
				return "", nil, "", false
			}
			gtin = rest[:14]
			rest = rest[14:]
		case "17":
			if len(rest) < 6 {
				return "", nil, "", false
			}
			expiry = parseGS1Date(rest[:6])
			rest = rest[6:]
		case "10":
			// variable length, ends at FNC1 or end of data
			if sep := strings.IndexByte(rest, '\x1d'); sep >= 0 {
				batch = rest[:sep]
				rest = rest[sep+1:]
			} else {
				batch = rest
				rest = ""
			}
		default:
			return "", nil, "", false
		}
		rest = strings.TrimPrefix(rest, "\x1d")
	}
	return gtin, expiry, batch, gtin != ""
}

// parseGS1Date decodes the YYMMDD form of AI 17. A day of 00 means the end
// of the month.
func parseGS1Date(value string) *time.Time {
	if len(value) != 6 {
		return nil
	}
	year, err1 := strconv.Atoi(value[:2])
	month, err2 := strconv.Atoi(value[2:4])
	day, err3 := strconv.Atoi(value[4:6])
	if err1 != nil || err2 != nil || err3 != nil || month < 1 || month > 12 {
		return nil
	}
	if day == 0 {
		d := time.Date(2000+year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC)
		return &d
	}
	d := time.Date(2000+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return &d
}
