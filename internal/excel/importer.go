package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/example/reviewbot/pkg/models"
	"github.com/xuri/excelize/v2"
)

// ErrNoWords is returned when a file yields no importable rows
var ErrNoWords = errors.New("excel: no words to import")

// FileCreator stores an imported word list
type FileCreator interface {
	Create(ctx context.Context, name, category string, words []models.Word) (int64, error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FileName            string // Name the file is stored under; its extension selects the format
	Category            string // Category of the new file
	WordColumn          string // Column with the word
	TranslationColumn   string // Column with the translation
	PronunciationColumn string // Column with the pronunciation
	SheetName           string // Sheet to import; empty means the first sheet
	StartRow            int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig(fileName string) ImportConfig {
	return ImportConfig{
		FileName:            fileName,
		WordColumn:          "A",
		TranslationColumn:   "B",
		PronunciationColumn: "C",
		StartRow:            2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	FileID         int64
	TotalProcessed int
	Created        int
	Skipped        int
	Errors         []string
}

// Importer turns spreadsheets into stored word files
type Importer struct {
	files FileCreator
}

// NewImporter creates a new importer
func NewImporter(files FileCreator) *Importer {
	return &Importer{files: files}
}

// Import reads an Excel or CSV word list and stores it as a new file
func (im *Importer) Import(ctx context.Context, config ImportConfig, r io.Reader) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FileName)) == ".csv" {
		rows, err = readCSV(r)
	} else {
		rows, err = readExcel(r, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	words := collectWords(rows, &config, result)
	if len(words) == 0 {
		return result, ErrNoWords
	}

	id, err := im.files.Create(ctx, config.FileName, config.Category, words)
	if err != nil {
		return result, fmt.Errorf("failed to store imported file: %w", err)
	}
	result.FileID = id
	result.Created = len(words)
	return result, nil
}

// readExcel returns the rows of the requested sheet
func readExcel(r io.Reader, sheet string) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

// readCSV returns all CSV records
func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading CSV: %w", err)
	}
	return rows, nil
}

// collectWords extracts words from rows. A row with only its first cell set is
// a category header: the first one names the file's category when none was
// given, later ones are skipped.
func collectWords(rows [][]string, config *ImportConfig, result *ImportResult) []models.Word {
	seen := make(map[string]bool)
	var words []models.Word

	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow {
			continue
		}
		if isBlank(row) {
			continue
		}

		if isCategoryHeader(row) {
			if config.Category == "" {
				config.Category = strings.Trim(strings.TrimSpace(row[0]), "\"")
			}
			continue
		}

		result.TotalProcessed++

		text := cleanWord(cell(row, config.WordColumn))
		if text == "" {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: word cannot be empty", rowNum))
			continue
		}
		key := strings.ToLower(text)
		if seen[key] {
			result.Skipped++
			continue
		}
		seen[key] = true

		words = append(words, models.Word{
			Idx:           len(words) + 1,
			Text:          text,
			Translation:   strings.TrimSpace(cell(row, config.TranslationColumn)),
			Pronunciation: strings.TrimSpace(cell(row, config.PronunciationColumn)),
		})
	}
	return words
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isCategoryHeader(row []string) bool {
	if strings.TrimSpace(row[0]) == "" {
		return false
	}
	for _, c := range row[1:] {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return row[idx]
	}
	return ""
}

// cleanWord drops trailing notes in parentheses, e.g. "go (went, gone)"
func cleanWord(word string) string {
	if i := strings.Index(word, "("); i > 0 {
		return strings.TrimSpace(word[:i])
	}
	return strings.TrimSpace(word)
}

// Helper function to convert Excel column letter to index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}
