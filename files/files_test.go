package files

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	county "github.com/khslmr/covid-county-corr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUnified(t *testing.T) *county.Unified {
	reg, e := county.Build([]county.RegistryRow{
		{State: "TX", Name: "Smith County", Code: 48423, Weight: 100},
		{State: "TX", Name: "Travis County", Code: 48453, Weight: 300},
		{State: "GA", Name: "Jones County", Code: 13169, Weight: 50},
	}, nil)
	require.Nil(t, e)

	popl, e := county.NewTable("population", county.TableColumns("popl"))
	require.Nil(t, e)
	require.Nil(t, popl.Set(48423, "popl", county.Known(100)))
	require.Nil(t, popl.Set(13169, "popl", county.Known(50.5)))

	regions, e := county.NewTable("regions", county.TableLabels("region"))
	require.Nil(t, e)
	for id, r := range map[int]string{48423: "Southwest", 48453: "Southwest", 13169: "Southeast"} {
		require.Nil(t, regions.SetLabel(id, "region", r))
	}

	u, e := county.Merge(reg, []county.Source{{Table: popl, Policy: county.None()}, {Table: regions}})
	require.Nil(t, e)

	return u
}

func TestFiles_Save(t *testing.T) {
	f, e := NewFiles()
	require.Nil(t, e)

	var buf bytes.Buffer
	f.Attach(&buf)
	require.Nil(t, f.Save(testUnified(t)))
	require.Nil(t, f.Close())

	exp := `fips,state,name,weight,region,popl
"13169","GA","Jones County",50,"Southeast",50.5
"48423","TX","Smith County",100,"Southwest",100
"48453","TX","Travis County",300,"Southwest",NA
`
	assert.Equal(t, exp, buf.String())
}

func TestFiles_Options(t *testing.T) {
	f, e := NewFiles(FileSep('|'), FileStringDelim(0), FileMissing(""), FileFloatFormat("%.1f"), FileHeader(false))
	require.Nil(t, e)

	var buf bytes.Buffer
	f.Attach(&buf)
	require.Nil(t, f.Save(testUnified(t)))
	require.Nil(t, f.Close())

	exp := `13169|GA|Jones County|50.0|Southeast|50.5
48423|TX|Smith County|100.0|Southwest|100.0
48453|TX|Travis County|300.0|Southwest|
`
	assert.Equal(t, exp, buf.String())
}

func TestFiles_Create(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "out.csv")

	f, e := NewFiles()
	require.Nil(t, e)
	require.Nil(t, f.Create(fileName))
	assert.Equal(t, fileName, f.FileName())

	f.FieldNames = []string{"name", "n"}
	require.Nil(t, f.WriteHeader())
	require.Nil(t, f.WriteLine([]any{`Say "Hi"`, 3}))
	require.Nil(t, f.Close())

	data, e := os.ReadFile(fileName)
	require.Nil(t, e)
	assert.Equal(t, "name,n\n\"Say \"\"Hi\"\"\",3\n", string(data))
}

func TestFiles_Errors(t *testing.T) {
	f, e := NewFiles()
	require.Nil(t, e)

	assert.NotNil(t, f.WriteLine([]any{1}))
	assert.NotNil(t, f.Close())

	var buf bytes.Buffer
	f.Attach(&buf)
	assert.NotNil(t, f.WriteHeader())
	assert.NotNil(t, f.WriteLine([]any{true}))

	_, e = NewFiles(FileFloatFormat("2f"))
	assert.NotNil(t, e)

	_, e = NewFiles(FileSep('"'))
	assert.NotNil(t, e)

	_, e = NewFiles(FileSep('\n'))
	assert.NotNil(t, e)
}
