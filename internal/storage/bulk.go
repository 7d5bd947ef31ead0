package storage

import (
	"github.com/google/uuid"
	"github.com/jackc/pgtype"
	"github.com/jackc/pgx/v4"
)

type groupRow struct {
	id, name string
	lat, lng float64
	texts    pgtype.JSONB
}

type groupBulk struct {
	rows []groupRow
	idx  int
}

func (gr groupRow) toInterface() []interface{} {
	return []interface{}{gr.id, gr.name, gr.lat, gr.lng, gr.texts}
}

// groupRows prepares rows for bulk insert, assigning ids where missing
func groupRows(groups []Group) ([]groupRow, []string, error) {
	rows := make([]groupRow, 0, len(groups))
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		id := g.ID
		if id == "" {
			id = uuid.New().String()
		}

		texts, err := encodeTexts(g.Texts)
		if err != nil {
			return nil, nil, err
		}

		rows = append(rows, groupRow{id: id, name: g.Name, lat: g.Lat, lng: g.Lng, texts: texts})
		ids = append(ids, id)
	}
	return rows, ids, nil
}

func copyFromBulk(rows []groupRow) pgx.CopyFromSource {
	return &groupBulk{
		rows: rows,
		idx:  -1,
	}
}

func (gb *groupBulk) Next() bool {
	gb.idx++
	return gb.idx < len(gb.rows)
}

func (gb *groupBulk) Values() ([]interface{}, error) {
	return gb.rows[gb.idx].toInterface(), nil
}

func (gb *groupBulk) Err() error {
	return nil
}
