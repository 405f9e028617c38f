package drivertest

import (
	"database/sql/driver"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptedQuery(t *testing.T) {
	d := New()
	db := d.Open()
	defer db.Close()

	d.QueueRows([]string{"id", "name"},
		[]driver.Value{int64(1), "ann"},
		[]driver.Value{int64(2), "bob"},
	)

	rows, err := db.Query(`SELECT id, name FROM people WHERE id > $1`, int64(0))
	require.NoError(t, err)
	defer rows.Close()

	var ids []int64
	var names []string
	for rows.Next() {
		var id int64
		var name string
		require.NoError(t, rows.Scan(&id, &name))
		ids = append(ids, id)
		names = append(names, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int64{1, 2}, ids)
	assert.Equal(t, []string{"ann", "bob"}, names)

	assert.Equal(t, 1, d.QueryCount())
	assert.Equal(t, 0, d.ExecCount())

	log := d.Log()
	require.Len(t, log, 1)
	assert.Equal(t, `SELECT id, name FROM people WHERE id > $1`, log[0].SQL)
	assert.Equal(t, []driver.Value{int64(0)}, log[0].Args)
}

func TestScriptedExec(t *testing.T) {
	d := New()
	db := d.Open()
	defer db.Close()

	d.QueueExec(3)

	res, err := db.Exec(`DELETE FROM people`)
	require.NoError(t, err)
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, 1, d.ExecCount())
}

func TestUnscriptedStatementsFail(t *testing.T) {
	d := New()
	db := d.Open()
	defer db.Close()

	_, err := db.Query(`SELECT 1`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unscripted query")

	_, err = db.Exec(`DELETE FROM people`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unscripted exec")
}

func TestScriptKindMismatchFails(t *testing.T) {
	d := New()
	db := d.Open()
	defer db.Close()

	d.QueueExec(1)
	_, err := db.Query(`SELECT 1`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query got exec script")
}

func TestScriptsConsumeInOrder(t *testing.T) {
	d := New()
	db := d.Open()
	defer db.Close()

	d.QueueRows([]string{"n"}, []driver.Value{int64(1)})
	d.QueueRows([]string{"n"}, []driver.Value{int64(2)})

	for want := int64(1); want <= 2; want++ {
		var n int64
		require.NoError(t, db.QueryRow(`SELECT n`).Scan(&n))
		assert.Equal(t, want, n)
	}
	assert.Equal(t, 2, d.QueryCount())
}

func TestNullValues(t *testing.T) {
	d := New()
	db := d.Open()
	defer db.Close()

	d.QueueRows([]string{"name"}, []driver.Value{nil})

	var name *string
	require.NoError(t, db.QueryRow(`SELECT name`).Scan(&name))
	assert.Nil(t, name)
}
