package collector

import (
	"encoding/csv"
	"fmt"
	"os"
)

// utf8BOM を先頭に付けると Excel が日本語ヘッダーを正しく表示する。
const utf8BOM = "\uFEFF"

var listHeaders = []string{"検索エリア", "店舗名", "URL"}

var detailHeaders = []string{"検索エリア", "店舗名", "URL", "詳細住所", "電話番号", "詳細取得ステータス"}

// ListRow は一覧収集フェーズの1行。
type ListRow struct {
	Area string
	Name string
	URL  string
}

// DetailRow は詳細取得フェーズの1行。Status は "Success" か "Failed"。
type DetailRow struct {
	ListRow
	Address string
	Phone   string
	Status  string
}

// CSVSink は収集結果を追記保存するCSVファイル。
// 既存ファイルのURL列を読み込んで重複判定に使い、
// ファイルが空でなければヘッダーなしで追記する。
type CSVSink struct {
	path    string
	headers []string
	urlCol  int
	seen    map[string]bool
}

func NewListSink(path string) (*CSVSink, error) {
	return newSink(path, listHeaders, 2)
}

func NewDetailSink(path string) (*CSVSink, error) {
	return newSink(path, detailHeaders, 2)
}

func newSink(path string, headers []string, urlCol int) (*CSVSink, error) {
	s := &CSVSink{
		path:    path,
		headers: headers,
		urlCol:  urlCol,
		seen:    make(map[string]bool),
	}
	if err := s.loadExisting(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *CSVSink) loadExisting() error {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("既存CSVのオープンに失敗: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("既存CSVの読み込みに失敗: %w", err)
	}
	for i, row := range rows {
		if i == 0 {
			continue // ヘッダー行
		}
		if len(row) > s.urlCol && row[s.urlCol] != "" {
			s.seen[row[s.urlCol]] = true
		}
	}
	return nil
}

// Seen は URL が既に保存済みかを返す。
func (s *CSVSink) Seen(url string) bool {
	return s.seen[url]
}

// SeenCount は保存済みURL数を返す。
func (s *CSVSink) SeenCount() int {
	return len(s.seen)
}

// AppendList は一覧行を1件追記する。保存済みURLはスキップして false を返す。
func (s *CSVSink) AppendList(row ListRow) (bool, error) {
	if s.seen[row.URL] {
		return false, nil
	}
	if err := s.appendRecord([]string{row.Area, row.Name, row.URL}); err != nil {
		return false, err
	}
	s.seen[row.URL] = true
	return true, nil
}

// AppendDetail は詳細行を1件追記する。中断からの再開に備えて行単位で書き込む。
func (s *CSVSink) AppendDetail(row DetailRow) error {
	record := []string{row.Area, row.Name, row.URL, row.Address, row.Phone, row.Status}
	if err := s.appendRecord(record); err != nil {
		return err
	}
	s.seen[row.URL] = true
	return nil
}

func (s *CSVSink) appendRecord(record []string) error {
	writeHeader := false
	if info, err := os.Stat(s.path); os.IsNotExist(err) || (err == nil && info.Size() == 0) {
		writeHeader = true
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("CSVのオープンに失敗: %w", err)
	}
	defer f.Close()

	if writeHeader {
		if _, err := f.WriteString(utf8BOM); err != nil {
			return err
		}
	}

	w := csv.NewWriter(f)
	if writeHeader {
		if err := w.Write(s.headers); err != nil {
			return err
		}
	}
	if err := w.Write(record); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
