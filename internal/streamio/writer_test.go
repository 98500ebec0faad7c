package streamio

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowWriterWritesHeaderThenRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	rw, err := NewRowWriter(path, []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, rw.Append([]string{"1", "2"}))
	require.NoError(t, rw.Append([]string{"3", "4"}))
	require.NoError(t, rw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n3,4\n", string(data))
}

func TestRowWriterConcurrentAppendsDoNotInterleave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.csv")
	rw, err := NewRowWriter(path, []string{"v"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = rw.Append([]string{"x"})
		}(i)
	}
	wg.Wait()
	require.NoError(t, rw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, data, len("v\n")+50*len("x\n"))
}

func TestMapWriterSeparatorHandling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "map.json")
	mw, err := NewMapWriter(path)
	require.NoError(t, err)
	require.NoError(t, mw.Put("A", map[string]int{"x": 1}))
	require.NoError(t, mw.Put("B", map[string]int{"y": 2}))
	require.NoError(t, mw.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "{\n  \"A\": {\"x\":1},\n  \"B\": {\"y\":2}\n}\n", string(data))
}
