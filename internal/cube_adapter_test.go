package internal

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCubeExecute(t *testing.T) {
	cs := newFakeCellset(captions("2021", "2022"), captions("x", "y"), [][]any{{10.0, 20.0}, {nil, 5.0}})
	driver := &fakeCubeDriver{session: &fakeCubeSession{cellset: cs}}

	var out bytes.Buffer
	adapter := NewCubeAdapter("olap.example.org", "Sales", driver, NewLogger(&out, true))

	result, err := adapter.Execute(context.Background(), "SELECT FROM [Sales]", false)
	assert.NoError(t, err)
	assert.Equal(t, [][]any{{10.0, 20.0}, {float64(0), 5.0}}, result.Rows)

	assert.Equal(t, "PROVIDER=MSOLAP; persist security info=true; Data Source=olap.example.org; initial catalog=Sales;", driver.connectionString)
	assert.Equal(t, "SELECT FROM [Sales]", driver.session.query)
	assert.True(t, cs.closed)
	assert.True(t, driver.session.closed)
	assert.Contains(t, out.String(), "Timer: Sales 0:00:00")
}

func TestCubeDefaults(t *testing.T) {
	adapter := NewCubeAdapter("", "", nil, nil)
	assert.Equal(t, DefaultCubeServer, adapter.Server)
	assert.Equal(t, DefaultCube, adapter.Cube)
}

func TestCubeExecuteError(t *testing.T) {
	driver := &fakeCubeDriver{session: &fakeCubeSession{err: errors.New("syntax error")}}
	adapter := NewCubeAdapter("", "", driver, nil)

	_, err := adapter.Execute(context.Background(), "SELEC", false)
	assert.EqualError(t, err, "syntax error")
	assert.True(t, driver.session.closed)
}

func TestCubeOpenError(t *testing.T) {
	driver := &fakeCubeDriver{err: errors.New("server unreachable")}
	adapter := NewCubeAdapter("", "", driver, nil)

	_, err := adapter.Execute(context.Background(), "SELECT FROM [Sales]", false)
	assert.EqualError(t, err, "server unreachable")
}

func TestCubeReleaseErrorIgnored(t *testing.T) {
	cs := newFakeCellset(captions("a"), captions("x"), [][]any{{1.0}})
	cs.closeErr = errors.New("already closed")
	driver := &fakeCubeDriver{session: &fakeCubeSession{cellset: cs, closeErr: errors.New("broken pipe")}}

	var out bytes.Buffer
	adapter := NewCubeAdapter("", "", driver, NewLogger(&out, true))

	result, err := adapter.Execute(context.Background(), "SELECT FROM [Sales]", false)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.NumRows())
	assert.Contains(t, out.String(), "Failed to close cellset: already closed")
	assert.Contains(t, out.String(), "Failed to close session: broken pipe")
}

func TestCubeEmptyQuery(t *testing.T) {
	adapter := NewCubeAdapter("", "", &fakeCubeDriver{}, nil)
	_, err := adapter.Read(context.Background(), "")
	assert.Equal(t, ErrEmptyQuery, err)
}

// helpers

type fakeCubeDriver struct {
	session          *fakeCubeSession
	err              error
	connectionString string
}

func (d *fakeCubeDriver) Open(ctx context.Context, connectionString string) (CubeSession, error) {
	d.connectionString = connectionString
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

type fakeCubeSession struct {
	cellset  *fakeCellset
	err      error
	closeErr error
	query    string
	closed   bool
}

func (s *fakeCubeSession) Execute(ctx context.Context, query string) (Cellset, error) {
	s.query = query
	if s.err != nil {
		return nil, s.err
	}
	return s.cellset, nil
}

func (s *fakeCubeSession) Close() error {
	s.closed = true
	return s.closeErr
}
