package export

import (
	"bytes"
	"context"
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"piggy/internal/core"
)

type sliceSource []core.Transaction

func (s sliceSource) StreamTransactions(_ context.Context, fn func(core.Transaction) error) error {
	for _, t := range s {
		if err := fn(t); err != nil {
			return err
		}
	}
	return nil
}

func TestXMLWriterEscapesMarkup(t *testing.T) {
	var buf bytes.Buffer
	source := sliceSource{{
		ID:          1,
		AccountID:   10,
		Description: `Groceries <&> "fancy" shop`,
		Amount:      decimal.RequireFromString("12.34"),
		BookedAt:    time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}}

	if err := Run(context.Background(), source, NewXMLWriter(&buf)); err != nil {
		t.Fatalf("run export: %v", err)
	}

	out := buf.String()
	if strings.Contains(out, "<&>") {
		t.Fatalf("markup characters must be escaped:\n%s", out)
	}
	if !strings.Contains(out, "&lt;&amp;&gt;") {
		t.Fatalf("expected escaped description:\n%s", out)
	}

	// The document round-trips through a standard XML decoder.
	var doc struct {
		XMLName      xml.Name `xml:"export"`
		Version      string   `xml:"version,attr"`
		Transactions []struct {
			ID          int64  `xml:"id"`
			Description string `xml:"description"`
			Amount      string `xml:"amount"`
			BookedAt    string `xml:"bookedAt"`
		} `xml:"transaction"`
	}
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("output is not well-formed XML: %v\n%s", err, out)
	}
	if doc.Version != "1.0" {
		t.Fatalf("expected version attribute 1.0, got %q", doc.Version)
	}
	if len(doc.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(doc.Transactions))
	}
	if doc.Transactions[0].Description != `Groceries <&> "fancy" shop` {
		t.Fatalf("description did not round-trip: %q", doc.Transactions[0].Description)
	}
	if doc.Transactions[0].Amount != "12.34" {
		t.Fatalf("expected amount 12.34, got %q", doc.Transactions[0].Amount)
	}
}

func TestXMLWriterEmptyExport(t *testing.T) {
	var buf bytes.Buffer
	if err := Run(context.Background(), sliceSource{}, NewXMLWriter(&buf)); err != nil {
		t.Fatalf("run export: %v", err)
	}

	var doc struct {
		XMLName xml.Name `xml:"export"`
	}
	if err := xml.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("empty export must still be well-formed: %v\n%s", err, buf.String())
	}
}

func TestXMLWriterStreamsManyRecords(t *testing.T) {
	var source sliceSource
	for i := 0; i < 500; i++ {
		source = append(source, core.Transaction{
			ID:        int64(i + 1),
			AccountID: 10,
			Amount:    decimal.NewFromInt(int64(i)),
			BookedAt:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
		})
	}

	var buf bytes.Buffer
	if err := Run(context.Background(), source, NewXMLWriter(&buf)); err != nil {
		t.Fatalf("run export: %v", err)
	}
	if got := strings.Count(buf.String(), "<transaction>"); got != 500 {
		t.Fatalf("expected 500 records, got %d", got)
	}
}
