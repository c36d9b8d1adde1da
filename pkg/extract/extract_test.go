package extract_test

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Abraxas-365/escolar/pkg/extract"
)

const reportCard = `REPORTE DE CALIFICACIONES
Estudiante: Maria Lopez
Código: 2023-0451
Grado: 5
Sección: B
Materia: Matemáticas
Calificación: 87,5
Período: Primer Parcial
Año Escolar: 2024`

func TestExtract_NeverPanics(t *testing.T) {
	sources := []extract.Source{
		{},
		extract.FromText(""),
		extract.FromText("\x00\xff\xfe invalid utf8 \xc3"),
		extract.FromText(strings.Repeat("Nombre: ", 5000)),
		extract.FromText(":::\n\n\r\n:"),
		extract.FromLines([]string{""}),
		extract.FromLines([]string{"   ", "\t"}),
		extract.FromLines([]string{"\xff", "Calificación:", "Grado:", "ID:"}),
		{Lines: []string{}},
	}
	types := []string{"academicrecord", "GradeRecord", "idcard", "Identification", "attendance", "", "???"}

	for _, src := range sources {
		for _, docType := range types {
			require.NotPanics(t, func() {
				result := extract.Extract(src, docType)
				assert.NotNil(t, result.Additional)
			})
		}
	}
}

func TestExtract_AcademicLabeledName(t *testing.T) {
	result := extract.Extract(extract.FromText("Estudiante: Maria Lopez"), "academicrecord")

	require.NotNil(t, result.Student.FullName)
	assert.Equal(t, "Maria Lopez", *result.Student.FullName)
}

func TestExtract_AcademicScore(t *testing.T) {
	result := extract.Extract(extract.FromText("Calificación: 87.5"), "academicrecord")

	require.NotNil(t, result.Academic.Score)
	assert.Equal(t, 87.5, *result.Academic.Score)
}

func TestExtract_FirstMatchWins(t *testing.T) {
	text := "Nombre: A\nMateria: Historia\nNombre: B"
	result := extract.Extract(extract.FromText(text), "AcademicRecord")

	require.NotNil(t, result.Student.FullName)
	assert.Equal(t, "A", *result.Student.FullName)
}

func TestExtract_UnknownTypeUsesGeneric(t *testing.T) {
	result := extract.Extract(extract.FromText(reportCard), "AttendanceXYZ")

	assert.Contains(t, result.Additional, extract.KeyTextPreview)
	assert.Equal(t, extract.StudentFields{}, result.Student)
	assert.Equal(t, extract.AcademicFields{}, result.Academic)
	assert.Nil(t, result.Confidence)
}

func TestExtract_AttendanceLines(t *testing.T) {
	result := extract.Extract(extract.FromLines([]string{"Juan Perez", "Presente"}), "attendance")

	require.NotNil(t, result.Student.FullName)
	assert.Equal(t, "Juan Perez", *result.Student.FullName)
	assert.Equal(t, "Presente", result.Additional[extract.KeyAttendanceStatus])
}

func TestExtract_ConfidenceHalf(t *testing.T) {
	text := "Estudiante: Maria Lopez\nSección: B\nMateria: Matemáticas\nCalificación: 87.5"
	result := extract.Extract(extract.FromText(text), "academicrecord")

	require.NotNil(t, result.Confidence)
	assert.Equal(t, 0.5, *result.Confidence)
	assert.Equal(t, "0.50", result.Additional[extract.KeyConfidenceScore])
}

func TestExtract_Idempotent(t *testing.T) {
	inputs := []struct {
		src     extract.Source
		docType string
	}{
		{extract.FromText(reportCard), "academicrecord"},
		{extract.FromLines([]string{"Juan Perez", "5to", "Sección A", "87"}), "academicrecord"},
		{extract.FromLines([]string{"a", "b", "c"}), "generic"},
		{extract.FromText("Nombre: Ana\nCédula: 0912345678"), "idcard"},
	}

	for _, in := range inputs {
		first, err := json.Marshal(extract.Extract(in.src, in.docType))
		require.NoError(t, err)
		second, err := json.Marshal(extract.Extract(in.src, in.docType))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(second))
	}
}

func TestExtract_ConcurrentCallers(t *testing.T) {
	want := extract.Extract(extract.FromText(reportCard), "academicrecord")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, extract.Extract(extract.FromText(reportCard), "academicrecord"))
		}()
	}
	wg.Wait()
}

func TestParseDocumentType(t *testing.T) {
	tests := map[string]extract.DocumentType{
		"AcademicRecord": extract.DocumentAcademicRecord,
		"graderecord":    extract.DocumentAcademicRecord,
		"IDCARD":         extract.DocumentIDCard,
		"Identification": extract.DocumentIDCard,
		"Attendance":     extract.DocumentAttendance,
		"AttendanceXYZ":  extract.DocumentGeneric,
		"":               extract.DocumentGeneric,
	}

	for in, want := range tests {
		assert.Equal(t, want, extract.ParseDocumentType(in), "input %q", in)
	}
}
