package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/KaramelBytes/winelens/internal/analysis"
)

const (
	// maxXLSXBytes bounds how much of a workbook is buffered in memory.
	maxXLSXBytes = 64 << 20
	// maxXLSXPartBytes bounds one decompressed archive member.
	maxXLSXPartBytes = 256 << 20
	// maxXLSXColumns is the worksheet width, columns A through XFD.
	maxXLSXColumns = 16384
)

// ErrCellRef reports a cell reference outside the worksheet grid.
var ErrCellRef = errors.New("invalid cell reference")

type xlsxLoader struct{}

func (xlsxLoader) CanLoad(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxLoader) Extension() string { return ".xlsx" }

// Load reads the selected sheet of a workbook. The whole archive is buffered
// because zip needs random access.
func (xlsxLoader) Load(r io.Reader, opt Options) (*analysis.Dataset, error) {
	b, err := io.ReadAll(io.LimitReader(r, maxXLSXBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read xlsx: %w", err)
	}
	if len(b) > maxXLSXBytes {
		return nil, fmt.Errorf("read xlsx: workbook larger than %d MiB", maxXLSXBytes>>20)
	}
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	wb, err := openWorkbook(zr)
	if err != nil {
		return nil, err
	}
	target, err := wb.sheetPart(opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, err
	}
	sheetXML, err := readPart(zr, target)
	if err != nil {
		return nil, err
	}
	if sheetXML == nil {
		return nil, fmt.Errorf("open xlsx: sheet %s not found", target)
	}
	ds, err := analysis.Build("", &sheetRowReader{dec: xml.NewDecoder(bytes.NewReader(sheetXML)), shared: wb.shared}, opt.Options)
	if err != nil {
		return nil, fmt.Errorf("parse xlsx: %w", err)
	}
	return ds, nil
}

type sheetEntry struct {
	Name    string `xml:"name,attr"`
	SheetID int    `xml:"sheetId,attr"`
	RID     string `xml:"id,attr"`
}

type relationship struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// richText is the text of a shared or inline string, plain or split into runs.
type richText struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (rt richText) String() string {
	if len(rt.Runs) == 0 {
		return rt.T
	}
	var b strings.Builder
	b.WriteString(rt.T)
	for _, r := range rt.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

// workbook holds the parts shared by every sheet of an archive.
type workbook struct {
	sheets []sheetEntry
	rels   map[string]string
	shared []string
}

func openWorkbook(zr *zip.Reader) (*workbook, error) {
	wb := &workbook{rels: map[string]string{}}

	var doc struct {
		Sheets []sheetEntry `xml:"sheets>sheet"`
	}
	if err := decodePart(zr, "xl/workbook.xml", &doc); err != nil {
		return nil, err
	}
	wb.sheets = doc.Sheets

	var rels struct {
		Items []relationship `xml:"Relationship"`
	}
	if err := decodePart(zr, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, err
	}
	for _, r := range rels.Items {
		if r.ID != "" && r.Target != "" {
			wb.rels[r.ID] = r.Target
		}
	}

	var sst struct {
		Items []richText `xml:"si"`
	}
	if err := decodePart(zr, "xl/sharedStrings.xml", &sst); err != nil {
		return nil, err
	}
	wb.shared = make([]string, len(sst.Items))
	for i, it := range sst.Items {
		wb.shared[i] = it.String()
	}
	return wb, nil
}

// sheetPart maps a sheet name or 1-based index to its part path inside the archive.
// An index with no workbook entry falls back to the conventional part name.
func (wb *workbook) sheetPart(name string, index int) (string, error) {
	if name != "" {
		names := make([]string, 0, len(wb.sheets))
		for _, s := range wb.sheets {
			if strings.EqualFold(s.Name, name) {
				if rel, ok := wb.rels[s.RID]; ok {
					return normalizeRelPath(rel), nil
				}
			}
			names = append(names, s.Name)
		}
		return "", fmt.Errorf("sheet '%s' not found; available sheets: %s", name, strings.Join(names, ", "))
	}
	if index <= 0 {
		index = 1
	}
	for _, s := range wb.sheets {
		if s.SheetID == index {
			if rel, ok := wb.rels[s.RID]; ok {
				return normalizeRelPath(rel), nil
			}
		}
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", index)), nil
}

// readPart returns the decompressed member, or nil when the archive lacks it.
func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open xlsx part %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(io.LimitReader(rc, maxXLSXPartBytes+1))
		if err != nil {
			return nil, fmt.Errorf("read xlsx part %s: %w", name, err)
		}
		if len(b) > maxXLSXPartBytes {
			return nil, fmt.Errorf("read xlsx part %s: larger than %d MiB uncompressed", name, maxXLSXPartBytes>>20)
		}
		return b, nil
	}
	return nil, nil
}

// decodePart unmarshals an optional XML member into v. Absent members leave v untouched.
func decodePart(zr *zip.Reader, name string, v any) error {
	b, err := readPart(zr, name)
	if err != nil || len(b) == 0 {
		return err
	}
	if err := xml.Unmarshal(b, v); err != nil {
		return fmt.Errorf("parse xlsx part %s: %w", name, err)
	}
	return nil
}

type cellXML struct {
	Ref    string   `xml:"r,attr"`
	Type   string   `xml:"t,attr"`
	Value  string   `xml:"v"`
	Inline richText `xml:"is"`
}

// sheetRowReader streams the rows of one worksheet as string records.
type sheetRowReader struct {
	dec    *xml.Decoder
	shared []string
}

// Read returns the next sheet row; io.EOF ends the sheet. Cells are placed by
// their reference so gaps come back as empty strings.
func (r *sheetRowReader) Read() ([]string, error) {
	var row []string
	inRow := false
	for {
		tok, err := r.dec.Token()
		if err == io.EOF {
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("read sheet row: %w", err)
		}
		switch se := tok.(type) {
		case xml.StartElement:
			switch {
			case se.Name.Local == "row":
				inRow, row = true, nil
			case inRow && se.Name.Local == "c":
				var c cellXML
				if err := r.dec.DecodeElement(&c, &se); err != nil {
					return nil, fmt.Errorf("read cell: %w", err)
				}
				col := len(row)
				if c.Ref != "" {
					if col, err = cellColumn(c.Ref); err != nil {
						return nil, err
					}
				}
				if col >= maxXLSXColumns {
					return nil, fmt.Errorf("%w: row has more than %d cells", ErrCellRef, maxXLSXColumns)
				}
				for len(row) <= col {
					row = append(row, "")
				}
				row[col] = r.cellText(c)
			}
		case xml.EndElement:
			if inRow && se.Name.Local == "row" {
				return row, nil
			}
		}
	}
}

func (r *sheetRowReader) cellText(c cellXML) string {
	switch c.Type {
	case "s":
		i, err := strconv.Atoi(strings.TrimSpace(c.Value))
		if err != nil || i < 0 || i >= len(r.shared) {
			return ""
		}
		return r.shared[i]
	case "inlineStr":
		return c.Inline.String()
	}
	if c.Value == "" {
		return c.Inline.String()
	}
	return c.Value
}

// cellColumn returns the 0-based column of an A1-style reference such as "C12".
// References past column XFD are rejected before they can size a row.
func cellColumn(ref string) (int, error) {
	col, i := 0, 0
scan:
	for ; i < len(ref); i++ {
		ch := ref[i]
		switch {
		case ch >= 'A' && ch <= 'Z':
			col = col*26 + int(ch-'A') + 1
		case ch >= 'a' && ch <= 'z':
			col = col*26 + int(ch-'a') + 1
		default:
			break scan
		}
		if col > maxXLSXColumns {
			return 0, fmt.Errorf("%w: %q is beyond column XFD", ErrCellRef, ref)
		}
	}
	if i == 0 {
		return 0, fmt.Errorf("%w: %q has no column letters", ErrCellRef, ref)
	}
	return col - 1, nil
}

// normalizeRelPath turns a relationship target into a ZIP member name.
// Targets may be absolute ("/xl/worksheets/sheet1.xml") or relative to xl/.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
