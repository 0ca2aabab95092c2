package loader_test

import (
	"archive/zip"
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/winelens/internal/loader"
)

func TestLoadFileCSV(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "winequality-red.csv")
	content := "fixed acidity,volatile acidity,alcohol,quality,Id\n" +
		"7.4,0.70,9.4,5,0\n" +
		"7.8,0.88,9.8,5,1\n" +
		"11.2,0.28,9.8,6,2\n"
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ds, err := loader.LoadFile(p, loader.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ds.Name != "winequality-red.csv" {
		t.Fatalf("name = %q", ds.Name)
	}
	if ds.Rows != 3 {
		t.Fatalf("rows = %d, want 3", ds.Rows)
	}
	got := strings.Join(ds.NumericColumns(), "|")
	if got != "fixed acidity|volatile acidity|alcohol|quality" {
		t.Fatalf("numeric columns = %q", got)
	}
}

func TestLoadReaderSniffsSemicolon(t *testing.T) {
	content := "alcohol;quality\n9,4;5\n10,2;6\n"
	ds, err := loader.LoadReader("export.csv", strings.NewReader(content), loader.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	c, ok := ds.Column("alcohol")
	if !ok || len(c.Values) != 2 || c.Values[0] != 9.4 || c.Values[1] != 10.2 {
		t.Fatalf("alcohol column = %#v", c)
	}
}

func TestLoadReaderTSV(t *testing.T) {
	content := "alcohol\tquality\n9.4\t5\n"
	ds, err := loader.LoadReader("wine.tsv", strings.NewReader(content), loader.DefaultOptions())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(ds.Columns) != 2 {
		t.Fatalf("columns = %#v", ds.ColumnNames())
	}
}

func TestLoadReaderUnsupported(t *testing.T) {
	_, err := loader.LoadReader("notes.docx", strings.NewReader("x"), loader.DefaultOptions())
	if !errors.Is(err, loader.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
	if loader.Supported("notes.docx") || !loader.Supported("WINE.CSV") {
		t.Fatalf("Supported mismatch")
	}
	if got := strings.Join(loader.Extensions(), ","); got != ".csv,.tsv,.xlsx" {
		t.Fatalf("Extensions = %s", got)
	}
}

func TestLoadReaderXLSX(t *testing.T) {
	data := buildWorkbook(t)

	ds, err := loader.LoadReader("wine.xlsx", bytes.NewReader(data), loader.DefaultOptions())
	if err != nil {
		t.Fatalf("load by index: %v", err)
	}
	if got := strings.Join(ds.ColumnNames(), "|"); got != "alcohol|quality" {
		t.Fatalf("columns = %q", got)
	}
	q, _ := ds.Column("quality")
	if ds.Rows != 2 || q.Values[0] != 5 || q.Values[1] != 6 {
		t.Fatalf("quality = %#v (rows %d)", q.Values, ds.Rows)
	}

	opt := loader.DefaultOptions()
	opt.SheetName = "Notes"
	ds, err = loader.LoadReader("wine.xlsx", bytes.NewReader(data), opt)
	if err != nil {
		t.Fatalf("load by name: %v", err)
	}
	if got := strings.Join(ds.ColumnNames(), "|"); got != "comment" {
		t.Fatalf("notes columns = %q", got)
	}

	opt.SheetName = "Missing"
	if _, err := loader.LoadReader("wine.xlsx", bytes.NewReader(data), opt); err == nil {
		t.Fatalf("expected error for missing sheet")
	}
}

// buildWorkbook writes a two-sheet workbook using shared and inline strings.
func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	files := map[string]string{
		"xl/workbook.xml": `<?xml version="1.0" encoding="UTF-8"?>
<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships">
<sheets><sheet name="Data" sheetId="1" r:id="rId1"/><sheet name="Notes" sheetId="2" r:id="rId2"/></sheets></workbook>`,
		"xl/_rels/workbook.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="worksheet" Target="/xl/worksheets/sheet1.xml"/>
<Relationship Id="rId2" Type="worksheet" Target="worksheets/sheet2.xml"/></Relationships>`,
		"xl/sharedStrings.xml": `<?xml version="1.0" encoding="UTF-8"?>
<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><si><t>alcohol</t></si><si><t>quality</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
<row r="2"><c r="A2"><v>9.4</v></c><c r="B2"><v>5</v></c></row>
<row r="3"><c r="A3"><v>10.2</v></c><c r="B3"><v>6</v></c></row>
</sheetData></worksheet>`,
		"xl/worksheets/sheet2.xml": `<?xml version="1.0" encoding="UTF-8"?>
<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main"><sheetData>
<row r="1"><c r="A1" t="inlineStr"><is><t>comment</t></is></c></row>
<row r="2"><c r="A2" t="inlineStr"><is><t>fruity</t></is></c></row>
</sheetData></worksheet>`,
	}
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
