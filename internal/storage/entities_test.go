package storage

import (
	"testing"

	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/require"
)

func TestEncodeTextsNil(t *testing.T) {
	v, err := encodeTexts(nil)
	require.NoError(t, err)
	require.Equal(t, pgtype.Null, v.Status)

	texts, err := decodeTexts(v)
	require.NoError(t, err)
	require.Nil(t, texts)
}

func TestEncodeTextsEmpty(t *testing.T) {
	v, err := encodeTexts([]Text{})
	require.NoError(t, err)
	require.Equal(t, pgtype.Present, v.Status)
	require.JSONEq(t, `[]`, string(v.Bytes))

	texts, err := decodeTexts(v)
	require.NoError(t, err)
	require.NotNil(t, texts)
	require.Empty(t, texts)
}

func TestEncodeTextsWireShape(t *testing.T) {
	v, err := encodeTexts([]Text{{Text: "hi", UserID: "u1"}, {Text: "yo", UserID: "u2"}})
	require.NoError(t, err)
	require.JSONEq(t, `[{"text":"hi","userId":"u1"},{"text":"yo","userId":"u2"}]`, string(v.Bytes))
}

func TestDecodeTextsMalformed(t *testing.T) {
	_, err := decodeTexts(pgtype.JSONB{Bytes: []byte(`{"text":1}`), Status: pgtype.Present})
	require.Error(t, err)
}

func TestParseChange(t *testing.T) {
	c, err := parseChange(`{"group":"g1","origin":"node-a"}`)
	require.NoError(t, err)
	require.Equal(t, Change{GroupID: "g1", Origin: "node-a"}, c)

	_, err = parseChange(`{"origin":"node-a"}`)
	require.Error(t, err)

	_, err = parseChange(`not json`)
	require.Error(t, err)
}
