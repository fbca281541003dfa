package archive

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Collection is the top-level Firestore collection that holds archived tables.
const Collection = "archives"

// batchSize keeps each transaction under the Firestore limit of 500 writes.
const batchSize = 400

// Table is the document stored for each archived table.  Rows live in the "rows" subcollection,
// one document per row keyed by zero-padded row index.
type Table struct {
	Name    string    `firestore:"name"`
	Hash    string    `firestore:"hash"`
	Columns []string  `firestore:"columns"`
	Types   []string  `firestore:"types"`
	Rows    int       `firestore:"rows"`
	Created time.Time `firestore:"created,serverTimestamp"`
}

// NewFirestoreClient connects to the Firestore database of a Firebase project.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("NewFirestoreClient: %w", err)
	}
	fs, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewFirestoreClient: %w", err)
	}
	return fs, nil
}

func rowID(i int) string {
	return fmt.Sprintf("%08d", i)
}

func (a *Archiver) writeFirestore(ctx context.Context, df dataframe.DataFrame, base, name string) (string, bool, error) {
	ref := a.Firestore.Collection(Collection).Doc(name)
	path := Collection + "/" + name

	_, err := ref.Get(ctx)
	if err == nil {
		return path, false, nil
	}
	if status.Code(err) != codes.NotFound {
		return path, false, err
	}

	names := df.Names()
	types := df.Types()
	table := Table{
		Name:    base,
		Hash:    Hash(df),
		Columns: names,
		Types:   make([]string, len(types)),
		Rows:    df.Nrow(),
	}
	for i, t := range types {
		table.Types[i] = string(t)
	}

	columns := make([]series.Series, len(names))
	for j, n := range names {
		columns[j] = df.Col(n)
	}
	rowsRef := ref.Collection("rows")
	for start := 0; start < df.Nrow(); start += batchSize {
		end := start + batchSize
		if end > df.Nrow() {
			end = df.Nrow()
		}
		err := a.Firestore.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			for i := start; i < end; i++ {
				row := make(map[string]interface{}, len(names))
				for j, n := range names {
					row[n] = columns[j].Elem(i).Val()
				}
				if err := tx.Set(rowsRef.Doc(rowID(i)), row); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return path, false, fmt.Errorf("rows %d-%d: %w", start, end, err)
		}
	}

	// the table document is written last and marks a complete upload
	if _, err := ref.Set(ctx, &table); err != nil {
		return path, false, err
	}
	return path, true, nil
}

// ReadFirestore loads an archived table by its document ID (the archive name).
func ReadFirestore(ctx context.Context, client *firestore.Client, id string) (dataframe.DataFrame, error) {
	ref := client.Collection(Collection).Doc(id)
	snap, err := ref.Get(ctx)
	if err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("ReadFirestore: %s: %w", id, err)
	}
	var table Table
	if err := snap.DataTo(&table); err != nil {
		return dataframe.DataFrame{}, fmt.Errorf("ReadFirestore: %s: %w", id, err)
	}

	values := make([][]interface{}, len(table.Columns))
	iter := ref.Collection("rows").OrderBy(firestore.DocumentID, firestore.Asc).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return dataframe.DataFrame{}, fmt.Errorf("ReadFirestore: %s: %w", id, err)
		}
		data := doc.Data()
		for j, n := range table.Columns {
			values[j] = append(values[j], firestoreValue(data[n]))
		}
	}

	cols := make([]series.Series, len(table.Columns))
	for j, n := range table.Columns {
		cols[j] = series.New(values[j], series.Type(table.Types[j]), n)
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return df, fmt.Errorf("ReadFirestore: %s: %w", id, df.Err)
	}
	return df, nil
}

func firestoreValue(v interface{}) interface{} {
	if i, ok := v.(int64); ok {
		return int(i)
	}
	return v
}
