package excel

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/example/reviewbot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeFiles struct {
	name     string
	category string
	words    []models.Word
	err      error
}

func (f *fakeFiles) Create(_ context.Context, name, category string, words []models.Word) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.name, f.category, f.words = name, category, words
	return 7, nil
}

func workbook(t *testing.T, rows [][]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestImportExcel(t *testing.T) {
	buf := workbook(t, [][]interface{}{
		{"Word", "Translation", "Pronunciation"},
		{"Movement"},
		{"go (went, gone)", "идти", "[gəʊ]"},
		{"run", "бежать"},
		{"Run", "бежать"},
		{"", "пусто"},
		{"swim", "плавать", "[swɪm]"},
	})

	files := &fakeFiles{}
	res, err := NewImporter(files).Import(context.Background(), DefaultImportConfig("verbs.xlsx"), buf)
	require.NoError(t, err)

	assert.Equal(t, int64(7), res.FileID)
	assert.Equal(t, 5, res.TotalProcessed)
	assert.Equal(t, 3, res.Created)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Errors, 1)

	assert.Equal(t, "verbs.xlsx", files.name)
	assert.Equal(t, "Movement", files.category)
	require.Len(t, files.words, 3)
	assert.Equal(t, models.Word{Idx: 1, Text: "go", Translation: "идти", Pronunciation: "[gəʊ]"}, files.words[0])
	assert.Equal(t, 2, files.words[1].Idx)
	assert.Equal(t, "swim", files.words[2].Text)
	assert.Equal(t, 3, files.words[2].Idx)
}

func TestImportCSV(t *testing.T) {
	data := "word,translation,pronunciation\nfly,летать,[flaɪ]\nsing,петь,\n"

	cfg := DefaultImportConfig("list.CSV")
	cfg.Category = "verbs"
	files := &fakeFiles{}
	res, err := NewImporter(files).Import(context.Background(), cfg, strings.NewReader(data))
	require.NoError(t, err)

	assert.Equal(t, 2, res.Created)
	assert.Equal(t, "verbs", files.category)
	assert.Equal(t, "летать", files.words[0].Translation)
	assert.Equal(t, "", files.words[1].Pronunciation)
}

func TestImportNoWords(t *testing.T) {
	files := &fakeFiles{}
	_, err := NewImporter(files).Import(context.Background(), DefaultImportConfig("empty.csv"), strings.NewReader("word,translation\n"))
	assert.ErrorIs(t, err, ErrNoWords)
	assert.Nil(t, files.words)
}

func TestImportStoreFailure(t *testing.T) {
	boom := errors.New("boom")
	files := &fakeFiles{err: boom}
	_, err := NewImporter(files).Import(context.Background(), DefaultImportConfig("a.csv"), strings.NewReader("h\nfly,летать\n"))
	assert.ErrorIs(t, err, boom)
}

func TestColumnToIndex(t *testing.T) {
	assert.Equal(t, 0, columnToIndex("A"))
	assert.Equal(t, 2, columnToIndex("c"))
	assert.Equal(t, 26, columnToIndex("AA"))
}
