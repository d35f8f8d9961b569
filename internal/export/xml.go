// Package export serializes the transaction history to external
// destinations. The primary destination is a streamed XML file; records are
// encoded and flushed one at a time so memory use stays flat no matter how
// large the history grows.
package export

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"

	"piggy/internal/core"
)

// Sink receives exported transactions one at a time.
type Sink interface {
	Write(ctx context.Context, t core.Transaction) error
	Close(ctx context.Context) error
}

// TransactionSource streams the transaction history in booked order.
type TransactionSource interface {
	StreamTransactions(ctx context.Context, fn func(core.Transaction) error) error
}

const formatVersion = "1.0"

// xmlTransaction is the wire shape of one exported record. Field content
// passes through the XML encoder, so markup characters in descriptions are
// always escaped.
type xmlTransaction struct {
	XMLName     xml.Name `xml:"transaction"`
	ID          int64    `xml:"id"`
	AccountID   int64    `xml:"accountId"`
	Description string   `xml:"description"`
	Amount      string   `xml:"amount"`
	Virtual     bool     `xml:"virtual"`
	BookedAt    string   `xml:"bookedAt"`
}

// XMLWriter streams transactions as an XML document:
//
//	<export version="1.0">
//	  <transaction>...</transaction>
//	</export>
//
// Each record is flushed as soon as it is written.
type XMLWriter struct {
	enc    *xml.Encoder
	opened bool
}

func NewXMLWriter(w io.Writer) *XMLWriter {
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return &XMLWriter{enc: enc}
}

func (x *XMLWriter) open() error {
	if x.opened {
		return nil
	}
	start := xml.StartElement{
		Name: xml.Name{Local: "export"},
		Attr: []xml.Attr{{Name: xml.Name{Local: "version"}, Value: formatVersion}},
	}
	if err := x.enc.EncodeToken(start); err != nil {
		return fmt.Errorf("open export element: %w", err)
	}
	x.opened = true
	return nil
}

func (x *XMLWriter) Write(_ context.Context, t core.Transaction) error {
	if err := x.open(); err != nil {
		return err
	}
	rec := xmlTransaction{
		ID:          t.ID,
		AccountID:   t.AccountID,
		Description: t.Description,
		Amount:      core.FormatAmount(t.Amount),
		Virtual:     t.Virtual,
		BookedAt:    t.BookedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
	if err := x.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode transaction %d: %w", t.ID, err)
	}
	return x.enc.Flush()
}

// Close ends the document. An export with zero transactions still produces
// a well-formed empty root element.
func (x *XMLWriter) Close(_ context.Context) error {
	if err := x.open(); err != nil {
		return err
	}
	if err := x.enc.EncodeToken(xml.EndElement{Name: xml.Name{Local: "export"}}); err != nil {
		return fmt.Errorf("close export element: %w", err)
	}
	return x.enc.Flush()
}

// Run streams every transaction from source into each sink in order and
// closes the sinks. The first error aborts the export.
func Run(ctx context.Context, source TransactionSource, sinks ...Sink) error {
	err := source.StreamTransactions(ctx, func(t core.Transaction) error {
		for _, s := range sinks {
			if err := s.Write(ctx, t); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("stream transactions: %w", err)
	}
	for _, s := range sinks {
		if err := s.Close(ctx); err != nil {
			return fmt.Errorf("close sink: %w", err)
		}
	}
	return nil
}
