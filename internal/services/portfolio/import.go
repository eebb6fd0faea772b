package portfolio

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bobmcallan/mapletrade/internal/models"
)

// symbolPattern matches ticker symbols in statement lines: uppercase, up to
// 10 characters, optional dot for class shares (BRK.B)
var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,8}(\.[A-Z])?$`)

// statementStopwords are uppercase words that pass the symbol pattern but
// start summary rows, not holdings
var statementStopwords = map[string]bool{
	"TOTAL":    true,
	"SUBTOTAL": true,
	"CASH":     true,
	"BALANCE":  true,
	"PAGE":     true,
	"USD":      true,
	"CAD":      true,
}

// ImportStatement parses a broker statement PDF into a new portfolio. Lines
// of the form "SYMBOL units cost" become positions; candidate lines that fail
// to parse are skipped and counted.
func (s *Service) ImportStatement(ctx context.Context, userID, name string, pdfData []byte) (*models.Portfolio, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("portfolio name is required")
	}
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("statement PDF is empty")
	}

	text, err := extractStatementText(pdfData)
	if err != nil {
		return nil, err
	}

	positions, skipped := parseStatementLines(text)
	if skipped > 0 {
		s.logger.Warn().
			Str("user_id", userID).
			Int("skipped", skipped).
			Msg("Statement lines skipped during import")
	}
	if len(positions) == 0 {
		return nil, fmt.Errorf("no positions found in statement")
	}

	portfolio := &models.Portfolio{
		UserID:      userID,
		Name:        name,
		Description: fmt.Sprintf("Imported from statement (%d positions, %d lines skipped)", len(positions), skipped),
		Positions:   positions,
	}
	if err := s.CreatePortfolio(ctx, portfolio); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", userID).
		Str("portfolio_id", portfolio.ID).
		Int("positions", len(positions)).
		Int("skipped", skipped).
		Msg("Statement imported")
	return portfolio, nil
}

// extractStatementText extracts plain text from an in-memory PDF
func extractStatementText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var sb strings.Builder
	totalPages := r.NumPage()

	for i := 1; i <= totalPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

// parseStatementLines scans statement text for "SYMBOL units cost" lines.
// A line is a candidate when its first field looks like a ticker and it has
// at least three fields; candidates with unparseable numbers are counted as
// skipped. Everything else (headers, addresses, totals) is ignored.
func parseStatementLines(text string) ([]models.Position, int) {
	var positions []models.Position
	skipped := 0

	for _, line := range strings.Split(text, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		symbol := fields[0]
		if !symbolPattern.MatchString(symbol) || statementStopwords[symbol] {
			continue
		}

		shares, err1 := parseStatementNumber(fields[1])
		price, err2 := parseStatementNumber(fields[2])
		if err1 != nil || err2 != nil || shares <= 0 || price < 0 {
			skipped++
			continue
		}

		positions = append(positions, models.Position{
			Symbol:        symbol,
			Shares:        shares,
			PurchasePrice: price,
		})
	}

	return positions, skipped
}

// parseStatementNumber parses a statement figure, tolerating "$" prefixes and
// thousands separators
func parseStatementNumber(s string) (float64, error) {
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	return strconv.ParseFloat(s, 64)
}
