package sheets

import (
	"context"
	"sync"

	"github.com/xuri/excelize/v2"
)

// CellWrite records a single cell written through MockClient.
type CellWrite struct {
	Table string
	Cell  string
	Value interface{}
}

// MockClient is an in-memory GridClient. Writes are applied to Tables so
// reads observe them, and every call is recorded.
type MockClient struct {
	mu     sync.Mutex
	Tables map[string]Grid

	ReadCalls       []string
	UpdateCellCalls []CellWrite
	AppendRowCalls  [][]interface{}

	// Err, when set, fails every call.
	Err error
}

func NewMockClient(tables map[string]Grid) *MockClient {
	m := &MockClient{Tables: map[string]Grid{}}
	for name, g := range tables {
		m.Tables[name] = g.Clone()
	}
	return m
}

func (m *MockClient) ReadRange(ctx context.Context, table, rng string) (Grid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadCalls = append(m.ReadCalls, table)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tables[table].Clone(), nil
}

func (m *MockClient) UpdateCell(ctx context.Context, table, cell string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	return m.write(table, cell, value)
}

func (m *MockClient) UpdateCells(ctx context.Context, table string, cells map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for cell, value := range cells {
		if err := m.write(table, cell, value); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockClient) AppendRow(ctx context.Context, table string, values []interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	row := append(Row(nil), values...)
	m.AppendRowCalls = append(m.AppendRowCalls, values)
	m.Tables[table] = append(m.Tables[table], row)
	return nil
}

// Cell returns the stored value at an A1 reference, or nil.
func (m *MockClient) Cell(table, cell string) interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return nil
	}
	g := m.Tables[table]
	if row-1 >= len(g) || col-1 >= len(g[row-1]) {
		return nil
	}
	return g[row-1][col-1]
}

func (m *MockClient) write(table, cell string, value interface{}) error {
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return err
	}
	m.UpdateCellCalls = append(m.UpdateCellCalls, CellWrite{Table: table, Cell: cell, Value: value})
	g := m.Tables[table]
	for len(g) < row {
		g = append(g, Row{})
	}
	for len(g[row-1]) < col {
		g[row-1] = append(g[row-1], "")
	}
	g[row-1][col-1] = value
	m.Tables[table] = g
	return nil
}
