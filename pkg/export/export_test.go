package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title:   "Группа АБВГ-01-23",
		Headers: []string{"student_name", "attended_hours"},
		Rows: []map[string]string{
			{"student_name": "Иванов, Иван", "attended_hours": "3"},
			{"student_name": "Петров", "attended_hours": "1"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for input, expected := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, " csv ": FormatCSV, "pdf": FormatPDF} {
		got, err := ParseFormat(input)
		require.NoError(t, err)
		assert.Equal(t, expected, got)
	}
	_, err := ParseFormat("xlsx")
	assert.Error(t, err)
	assert.Equal(t, "visits.csv", FormatCSV.Filename("visits"))
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter(true).Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, utf8BOM))
	assert.Equal(t, "student_name,attended_hours\n\"Иванов, Иван\",3\nПетров,1\n", string(out[len(utf8BOM):]))

	empty, err := NewCSVExporter(false).Render(Dataset{Headers: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(empty))

	_, err = NewCSVExporter(false).Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter("").Render(sampleDataset())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewPDFExporter("").Render(Dataset{})
	assert.Error(t, err)
}

func TestTransliterate(t *testing.T) {
	assert.Equal(t, "Ivanov Shchukin", transliterate("Иванов Щукин"))
	assert.Equal(t, "ABVG-01-23", transliterate("АБВГ-01-23"))
	assert.Equal(t, "Net trebovaniy", transliterate("Нет требований"))
	assert.Equal(t, "?", transliterate("漢"))
}
