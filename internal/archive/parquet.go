package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"
)

// parquetWorkers is the marshalling parallelism handed to parquet-go.
const parquetWorkers = 4

type parquetField struct {
	Tag string
}

type parquetSchema struct {
	Tag    string
	Fields []parquetField
}

func parquetTag(name string, t series.Type) string {
	var typ string
	switch t {
	case series.Int:
		typ = "type=INT64"
	case series.Float:
		typ = "type=DOUBLE"
	case series.Bool:
		typ = "type=BOOLEAN"
	default:
		typ = "type=BYTE_ARRAY, convertedtype=UTF8"
	}
	return fmt.Sprintf("name=%s, %s, repetitiontype=OPTIONAL", name, typ)
}

// writeParquet stores df with one optional column per series.  Missing cells become nulls and
// floats keep every bit.
func writeParquet(df dataframe.DataFrame, w io.Writer) error {
	names := df.Names()
	types := df.Types()
	schema := parquetSchema{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for i, name := range names {
		if strings.ContainsAny(name, ",=") {
			return fmt.Errorf("column %q cannot be stored in parquet", name)
		}
		schema.Fields = append(schema.Fields, parquetField{Tag: parquetTag(name, types[i])})
	}
	md, err := json.Marshal(schema)
	if err != nil {
		return err
	}

	pw, err := writer.NewJSONWriterFromWriter(string(md), w, parquetWorkers)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	columns := make([]series.Series, len(names))
	for j, name := range names {
		columns[j] = df.Col(name)
	}
	for i := 0; i < df.Nrow(); i++ {
		row := make(map[string]interface{}, len(names))
		for j, s := range columns {
			row[names[j]] = s.Elem(i).Val()
		}
		rec, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := pw.Write(string(rec)); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return pw.WriteStop()
}

// readParquet loads a flat parquet file.  Columns keep their stored order.
func readParquet(path string) (dataframe.DataFrame, error) {
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer fr.Close()

	pr, err := reader.NewParquetColumnReader(fr, parquetWorkers)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer pr.ReadStop()

	sh := pr.SchemaHandler
	rows := pr.GetNumRows()
	var cols []series.Series
	for i := 1; i < len(sh.SchemaElements); i++ {
		el := sh.SchemaElements[i]
		if el.GetNumChildren() > 0 {
			return dataframe.DataFrame{}, fmt.Errorf("nested column %q", sh.Infos[i].ExName)
		}
		var values []interface{}
		if rows > 0 {
			values, _, _, err = pr.ReadColumnByPath(sh.IndexMap[int32(i)], rows)
			if err != nil {
				return dataframe.DataFrame{}, err
			}
		}

		t := series.String
		switch el.GetType() {
		case parquet.Type_INT32, parquet.Type_INT64:
			t = series.Int
		case parquet.Type_FLOAT, parquet.Type_DOUBLE:
			t = series.Float
		case parquet.Type_BOOLEAN:
			t = series.Bool
		}
		cells := make([]interface{}, len(values))
		for j, v := range values {
			cells[j] = parquetValue(v)
		}
		cols = append(cols, series.New(cells, t, sh.Infos[i].ExName))
	}
	return dataframe.New(cols...), nil
}

// parquetValue converts a decoded value into one series.New understands.
func parquetValue(v interface{}) interface{} {
	switch x := v.(type) {
	case int32:
		return int(x)
	case int64:
		return int(x)
	case float32:
		return float64(x)
	default:
		return x
	}
}
