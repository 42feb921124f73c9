package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/dwh-tools/tablepull/internal"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestSqlite(t *testing.T) {
	urlStr := sqliteUrl(t)

	err := runCmd([]string{"create-table", "main.sales", "--url", urlStr, "-c", "id=INTEGER", "-c", "region=TEXT", "-c", "amount=INTEGER"})
	assert.NoError(t, err)

	// second create is a no-op
	err = runCmd([]string{"create-table", "main.sales", "--url", urlStr, "-c", "id=INTEGER"})
	assert.NoError(t, err)

	csvPath := writeTestFile(t, "sales.csv", "id,region,amount\n1,north,100\n2,south,200\n3,east,300\n")
	_, stderr := captureOutput(func() { runCmd([]string{"bulk-insert", "main.sales", csvPath, "--url", urlStr}) })
	assert.Contains(t, stderr, "Inserted 3 rows into main.sales")

	stdout, stderr := captureOutput(func() { runCmd([]string{"read-table", "main.sales", "--url", urlStr, "--format", "csv"}) })
	assert.Contains(t, stderr, "Fetched 3 rows with 3 columns from result")
	assert.Equal(t, "id,region,amount\n1,north,100\n2,south,200\n3,east,300\n", stdout)

	stdout, _ = captureOutput(func() { runCmd([]string{"agg", "SUM", "main.sales", "amount", "--url", urlStr}) })
	assert.Equal(t, "600\n", stdout)

	queryPath := writeTestFile(t, "sales.sql", "SELECT region FROM main.sales WHERE amount >= {MIN} ORDER BY id")
	stdout, stderr = captureOutput(func() {
		runCmd([]string{"read-file", queryPath, "--url", urlStr, "-p", "{MIN}=200", "--format", "json"})
	})
	assert.JSONEq(t, `{"columns":["region"],"rows":[["south"],["east"]]}`, stdout)
	assert.Contains(t, stderr, queryPath+" loading...")
	assert.Contains(t, stderr, "memory usage:")

	stdout, _ = captureOutput(func() { runCmd([]string{"read", "SELECT COUNT(*) AS n FROM main.sales", "--url", urlStr}) })
	assert.Equal(t, "n\n3\n", stdout)

	assert.NoError(t, runCmd([]string{"truncate", "main.sales", "--url", urlStr}))
	stdout, _ = captureOutput(func() { runCmd([]string{"agg", "COUNT", "main.sales", "*", "--url", urlStr}) })
	assert.Equal(t, "0\n", stdout)

	assert.NoError(t, runCmd([]string{"drop-table", "main.sales", "--url", urlStr}))
	assert.NoError(t, runCmd([]string{"drop-table", "main.sales", "--url", urlStr}))
	assert.Error(t, runCmd([]string{"truncate", "main.sales", "--url", urlStr}))
}

func TestBulkInsertEmptyFields(t *testing.T) {
	urlStr := sqliteUrl(t)
	assert.NoError(t, runCmd([]string{"create-table", "notes", "--url", urlStr, "-c", "id=INTEGER", "-c", "note=TEXT"}))

	csvPath := writeTestFile(t, "notes.csv", "id,note\n1,\n")
	assert.NoError(t, runCmd([]string{"bulk-insert", "notes", csvPath, "--url", urlStr, "--quiet"}))
	assert.NoError(t, runCmd([]string{"bulk-insert", "notes", csvPath, "--url", urlStr, "--quiet", "--keep-empty"}))

	stdout, _ := captureOutput(func() {
		runCmd([]string{"read", "SELECT id, note IS NULL AS missing, note FROM notes ORDER BY rowid", "--url", urlStr, "--format", "csv"})
	})
	assert.Equal(t, "id,missing,note\n1,1,\n1,0,\n", stdout)
}

func TestQuiet(t *testing.T) {
	urlStr := sqliteUrl(t)
	queryPath := writeTestFile(t, "one.sql", "SELECT 1 AS one")

	stdout, stderr := captureOutput(func() { runCmd([]string{"read-file", queryPath, "--url", urlStr, "--quiet"}) })
	assert.Equal(t, "one\n1\n", stdout)
	assert.Empty(t, stderr)
}

func TestMdx(t *testing.T) {
	driver := &stubDriver{cellset: &stubCellset{
		cols:   []internal.Position{caption("2021"), caption("2022")},
		rows:   []internal.Position{caption("Amsterdam"), caption("Berlin")},
		values: [][]any{{10.0, 20.0}, {nil, 5.0}},
	}}
	useDriver(t, driver)

	stdout, stderr := captureOutput(func() {
		runCmd([]string{"mdx", "SELECT FROM [Sales]", "--server", "olap.example.org", "--cube", "Sales", "--format", "csv"})
	})
	assert.Equal(t, "2021,2022\n10,20\n0,5\n", stdout)
	assert.Contains(t, stderr, "Fetched 2 positions with 2 columns from cellset")
	assert.Contains(t, stderr, "Timer: Sales")
	assert.Contains(t, driver.connectionString, "Data Source=olap.example.org; initial catalog=Sales;")
	assert.Equal(t, "SELECT FROM [Sales]", driver.query)

	stdout, _ = captureOutput(func() {
		runCmd([]string{"mdx", "SELECT FROM [Sales]", "--hierarchy", "--format", "csv"})
	})
	assert.Equal(t, "0,2021,2022\nAmsterdam,10,20\nBerlin,0,5\n", stdout)
	assert.Contains(t, driver.connectionString, "Data Source=olap2-arka; initial catalog=Analyse United;")
}

func TestMdxFile(t *testing.T) {
	driver := &stubDriver{cellset: &stubCellset{
		cols:   []internal.Position{caption("Revenue")},
		rows:   []internal.Position{caption("Total")},
		values: [][]any{{42.0}},
	}}
	useDriver(t, driver)

	queryPath := writeTestFile(t, "revenue.mdx", "SELECT [Measures].[Revenue] ON 0 FROM [Sales]")
	stdout, _ := captureOutput(func() { runCmd([]string{"mdx", "--file", queryPath, "--format", "csv"}) })
	assert.Equal(t, "Revenue\n42\n", stdout)
	assert.Equal(t, "SELECT [Measures].[Revenue] ON 0 FROM [Sales]", driver.query)

	err := runCmd([]string{"mdx"})
	assert.Contains(t, err.Error(), "pass a query or --file")
}

func TestBadFormat(t *testing.T) {
	err := runCmd([]string{"read", "SELECT 1", "--url", sqliteUrl(t), "--format", "xml"})
	assert.Contains(t, err.Error(), `formatter "xml" is not supported`)
}

func TestBadScheme(t *testing.T) {
	err := runCmd([]string{"read", "SELECT 1", "--url", "hello://"})
	assert.Error(t, err)
}

func TestBadParam(t *testing.T) {
	err := runCmd([]string{"read-file", "query.sql", "--url", sqliteUrl(t), "-p", "novalue"})
	assert.Contains(t, err.Error(), "expected KEY=VALUE")
}

func TestSplitTable(t *testing.T) {
	schema, table := splitTable("dbo.Sales")
	assert.Equal(t, "dbo", schema)
	assert.Equal(t, "Sales", table)

	schema, table = splitTable("Sales")
	assert.Equal(t, "", schema)
	assert.Equal(t, "Sales", table)
}

// helpers

func captureOutput(f func()) (string, string) {
	color.NoColor = true
	stdout := os.Stdout
	stderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	r2, w2, err := os.Pipe()
	if err != nil {
		panic(err)
	}
	os.Stdout = w
	os.Stderr = w2
	f()
	w.Close()
	w2.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		panic(err)
	}
	out2, err := io.ReadAll(r2)
	if err != nil {
		panic(err)
	}
	os.Stdout = stdout
	os.Stderr = stderr
	return string(out), string(out2)
}

func runCmd(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SilenceErrors = true
	return cmd.Execute()
}

func sqliteUrl(t *testing.T) string {
	return fmt.Sprintf("sqlite:%s", filepath.Join(t.TempDir(), "test.sqlite3"))
}

func writeTestFile(t *testing.T, name string, content string) string {
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func useDriver(t *testing.T, driver internal.CellsetDriver) {
	previous := cellsetDriver
	cellsetDriver = driver
	t.Cleanup(func() { cellsetDriver = previous })
}

func caption(name string) internal.Position {
	return internal.Position{Members: []internal.Member{{Caption: name}}}
}

type stubDriver struct {
	cellset          *stubCellset
	connectionString string
	query            string
}

func (d *stubDriver) Open(ctx context.Context, connectionString string) (internal.CubeSession, error) {
	d.connectionString = connectionString
	return d, nil
}

func (d *stubDriver) Execute(ctx context.Context, query string) (internal.Cellset, error) {
	d.query = query
	return d.cellset, nil
}

func (d *stubDriver) Close() error { return nil }

type stubCellset struct {
	cols   []internal.Position
	rows   []internal.Position
	values [][]any
}

func (c *stubCellset) AxisCount() int { return 2 }

func (c *stubCellset) Positions(axis int) ([]internal.Position, error) {
	if axis == 0 {
		return c.cols, nil
	}
	return c.rows, nil
}

func (c *stubCellset) Value(col int, row int) (any, error) {
	return c.values[row][col], nil
}

func (c *stubCellset) Close() error { return nil }
