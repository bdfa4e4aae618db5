package sigwars_test

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/kleascm/bytesleuth/pkg/core"
	"github.com/kleascm/bytesleuth/pkg/interfaces"
	"github.com/kleascm/bytesleuth/pkg/sigwars"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource map[string][]byte

func (s mapSource) ReadWindow(file interfaces.CorpusFile, offset int64, length int) ([]byte, error) {
	data, ok := s[file.Path]
	if !ok {
		return nil, fmt.Errorf("no such file")
	}
	if offset >= int64(len(data)) {
		return nil, nil
	}
	return data[offset:min(offset+int64(length), int64(len(data)))], nil
}

func TestGrouperFirstSeenOrder(t *testing.T) {
	g := sigwars.NewGrouper(2)
	g.Add("file 0.med", []byte("MMD3"))
	g.Add("file 1.med", []byte("MED0"))
	g.Add("file 2.med", []byte("MED1"))
	g.Add("file 3.med", []byte("MED0"))
	g.Add("file 4.med", []byte("MMD3"))

	groups := g.Groups()
	require.Len(t, groups, 3)
	assert.Equal(t, `"'MMD3'"`, groups[0].Signature)
	assert.Equal(t, []string{"file 0.med", "file 4.med"}, groups[0].Files)
	assert.Equal(t, `"'MED0'"`, groups[1].Signature)
	assert.Equal(t, []string{"file 1.med", "file 3.med"}, groups[1].Files)
	assert.Equal(t, []string{"file 2.med"}, groups[2].Files)
}

func TestGrouperCopiesWindow(t *testing.T) {
	g := sigwars.NewGrouper(2)
	buf := []byte{1, 2}
	g.Add("a", buf)
	buf[0] = 9
	g.Add("b", []byte{1, 2})

	groups := g.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, []byte{1, 2}, groups[0].Window)
}

func TestScan(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	src := mapSource{
		"a": {0x00, 'M', 'E', 'D', 0x00},
		"b": {0x00, 'M', 'M', 'D', 0x03},
		"c": {0x00, 'M', 'E'},
		"d": {0x00, 'M', 'E', 'D', 0x00},
	}
	files := []interfaces.CorpusFile{{Path: "a"}, {Path: "b"}, {Path: "c"}, {Path: "gone"}, {Path: "d"}}

	groups, err := sigwars.Scan(context.Background(), src, files, 1, 4, 2, logger)
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, `"'MED'00"`, groups[0].Signature)
	assert.Equal(t, []string{"a", "d"}, groups[0].Files)
	assert.Equal(t, `"'MMD'03"`, groups[1].Signature)
	assert.Equal(t, `"'ME'"`, groups[2].Signature)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	groups, err = sigwars.Scan(ctx, src, files, 0, 4, 2, logger)
	assert.ErrorIs(t, err, core.ErrCancelled)
	assert.Empty(t, groups)
}
