package sheets

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const valueInputOption = "USER_ENTERED"

// Credentials selects how the client authenticates. JSON takes precedence
// over File when both are set.
type Credentials struct {
	File string
	JSON []byte
}

// SheetClient talks to one spreadsheet through the Sheets v4 API.
type SheetClient struct {
	service       *sheets.Service
	spreadsheetID string
	retry         RetryPolicy
	limiter       *rate.Limiter
}

// Option configures a SheetClient.
type Option func(*SheetClient)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(s *SheetClient) { s.retry = p }
}

// WithRequestsPerMinute caps outgoing API calls. Zero disables the limit.
func WithRequestsPerMinute(n int) Option {
	return func(s *SheetClient) {
		if n <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	}
}

func NewSheetClient(ctx context.Context, creds Credentials, spreadsheetID string, opts ...Option) (*SheetClient, error) {
	var clientOpt option.ClientOption
	switch {
	case len(creds.JSON) > 0:
		clientOpt = option.WithCredentialsJSON(creds.JSON)
	case creds.File != "":
		clientOpt = option.WithCredentialsFile(creds.File)
	default:
		return nil, errors.New("no Google credentials configured")
	}
	srv, err := sheets.NewService(ctx, clientOpt, option.WithScopes(sheets.SpreadsheetsScope))
	if err != nil {
		return nil, errors.Wrap(err, "unable to create Sheets client")
	}
	s := &SheetClient{
		service:       srv,
		spreadsheetID: spreadsheetID,
		retry:         DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IsTransient reports whether err may go away on retry. Requests the API
// rejected as malformed, unauthorized or unknown are not retried.
func IsTransient(err error) bool {
	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		switch gErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusNotFound:
			return false
		}
	}
	return !errors.Is(err, context.Canceled)
}

func (s *SheetClient) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	timer := time.Now()
	defer func() {
		remoteDuration.WithLabelValues(op).Observe(time.Since(timer).Seconds())
	}()
	return s.retry.Do(ctx, op, func(ctx context.Context) error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		return fn(ctx)
	})
}

func (s *SheetClient) ReadRange(ctx context.Context, table, rng string) (Grid, error) {
	var resp *sheets.ValueRange
	err := s.call(ctx, "read_range", func(ctx context.Context) error {
		var err error
		resp, err = s.service.Spreadsheets.Values.Get(
			s.spreadsheetID,
			CellRange(table, rng),
		).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	grid := make(Grid, len(resp.Values))
	for i, row := range resp.Values {
		grid[i] = Row(row)
	}
	log.Debugf("Read %d rows from %s", len(grid), CellRange(table, rng))
	return grid, nil
}

func (s *SheetClient) UpdateCell(ctx context.Context, table, cell string, value interface{}) error {
	return s.call(ctx, "update_cell", func(ctx context.Context) error {
		_, err := s.service.Spreadsheets.Values.Update(
			s.spreadsheetID,
			CellRange(table, cell),
			&sheets.ValueRange{Values: [][]interface{}{{value}}},
		).ValueInputOption(valueInputOption).Context(ctx).Do()
		return err
	})
}

// UpdateCells writes several single cells of one table in one request.
func (s *SheetClient) UpdateCells(ctx context.Context, table string, cells map[string]interface{}) error {
	if len(cells) == 0 {
		return nil
	}
	refs := make([]string, 0, len(cells))
	for ref := range cells {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	data := make([]*sheets.ValueRange, 0, len(refs))
	for _, ref := range refs {
		data = append(data, &sheets.ValueRange{
			Range:  CellRange(table, ref),
			Values: [][]interface{}{{cells[ref]}},
		})
	}
	return s.call(ctx, "update_cells", func(ctx context.Context) error {
		_, err := s.service.Spreadsheets.Values.BatchUpdate(
			s.spreadsheetID,
			&sheets.BatchUpdateValuesRequest{
				ValueInputOption: valueInputOption,
				Data:             data,
			},
		).Context(ctx).Do()
		return err
	})
}

func (s *SheetClient) AppendRow(ctx context.Context, table string, values []interface{}) error {
	return s.call(ctx, "append_row", func(ctx context.Context) error {
		_, err := s.service.Spreadsheets.Values.Append(
			s.spreadsheetID,
			CellRange(table, "A1"),
			&sheets.ValueRange{Values: [][]interface{}{values}},
		).ValueInputOption(valueInputOption).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
		return err
	})
}
