package internal

import (
	"context"
	"fmt"
)

const (
	DefaultCubeServer = "olap2-arka"
	DefaultCube       = "Analyse United"
)

// CubeAdapter flattens multidimensional query results from one server and cube.
type CubeAdapter struct {
	Server string
	Cube   string
	Driver CellsetDriver
	Log    *Logger
}

func NewCubeAdapter(server string, cube string, driver CellsetDriver, log *Logger) *CubeAdapter {
	if server == "" {
		server = DefaultCubeServer
	}
	if cube == "" {
		cube = DefaultCube
	}
	return &CubeAdapter{Server: server, Cube: cube, Driver: driver, Log: log}
}

func (a *CubeAdapter) TableName() string {
	return "cellset"
}

func (a *CubeAdapter) RowName() string {
	return "position"
}

// ConnectionString is the provider string handed to the driver.
func (a *CubeAdapter) ConnectionString() string {
	return fmt.Sprintf("PROVIDER=MSOLAP; persist security info=true; Data Source=%s; initial catalog=%s;", a.Server, a.Cube)
}

func (a *CubeAdapter) Read(ctx context.Context, query string) (*Table, error) {
	return a.Execute(ctx, query, false)
}

// Execute runs query and flattens the cellset, optionally prefixing the row
// hierarchy captions as positional columns.
func (a *CubeAdapter) Execute(ctx context.Context, query string, addHierarchy bool) (*Table, error) {
	return timed(a.Log, a.Cube, func() (*Table, error) {
		return a.execute(ctx, query, addHierarchy)
	})
}

func (a *CubeAdapter) execute(ctx context.Context, query string, addHierarchy bool) (*Table, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	a.Log.Printf("Connecting to %s", maskSecrets(a.ConnectionString()))
	session, err := a.Driver.Open(ctx, a.ConnectionString())
	if err != nil {
		return nil, err
	}
	defer a.release("session", session.Close)

	cs, err := session.Execute(ctx, query)
	if err != nil {
		return nil, err
	}
	defer a.release("cellset", cs.Close)

	return flattenCellset(cs, addHierarchy)
}

// release closes a resource and only logs failures.
func (a *CubeAdapter) release(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		a.Log.Printf("Failed to close %s: %s", name, err)
	}
}
