package bibtex

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
)

// recordLogger captures warnings so tests can assert on the exact
// build diagnostics
type recordLogger struct {
	warnings []string
}

func (l *recordLogger) Debugf(string, ...interface{}) {}
func (l *recordLogger) Infof(string, ...interface{})  {}
func (l *recordLogger) Errorf(string, ...interface{}) {}
func (l *recordLogger) Warnf(format string, v ...interface{}) {
	l.warnings = append(l.warnings, fmt.Sprintf(format, v...))
}

func captureWarnings() (*recordLogger, func()) {
	rec := &recordLogger{}
	old := Logger
	Logger = rec
	return rec, func() { Logger = old }
}

const domainTestBib = `
@article{Smith19,
  author = {Smith, John},
  year = {2019},
}
@article{Einstein05,
  author = {Einstein, Albert},
  year = {1905},
}
`

func writeBib(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadBibfile(t *testing.T) {
	convey.Convey("load parses once and skips while fresh", t, func() {
		dir := t.TempDir()
		writeBib(t, dir, "refs.bib", domainTestBib)
		d := NewDomain()

		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)
		bf, ok := d.Cache().Bibfile("refs.bib")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(bf.Data.Keys, convey.ShouldResemble, []string{"Smith19", "Einstein05"})

		// unchanged file: snapshot kept
		before := bf
		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)
		after, _ := d.Cache().Bibfile("refs.bib")
		convey.So(after, convey.ShouldEqual, before)
	})

	convey.Convey("a newer file forces a re-parse", t, func() {
		dir := t.TempDir()
		writeBib(t, dir, "refs.bib", domainTestBib)
		d := NewDomain()
		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)

		writeBib(t, dir, "refs.bib", domainTestBib+`
@misc{New21,
  year = {2021},
}
`)
		future := time.Now().Add(time.Hour)
		convey.So(os.Chtimes(filepath.Join(dir, "refs.bib"), future, future), convey.ShouldBeNil)

		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)
		bf, _ := d.Cache().Bibfile("refs.bib")
		convey.So(bf.Data.Len(), convey.ShouldEqual, 3)
	})

	convey.Convey("missing file is an error", t, func() {
		d := NewDomain()
		convey.So(d.LoadBibfile(t.TempDir(), "ghost.bib", true), convey.ShouldNotBeNil)
	})
}

func TestProcessCitations(t *testing.T) {
	convey.Convey("scan records cited keys and back references", t, func() {
		dir := t.TempDir()
		writeBib(t, dir, "refs.bib", domainTestBib)
		d := NewDomain()
		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)

		err := d.ProcessCitations("index",
			"Relativity :cite:`Einstein05` refined :cite:`Smith19`, "+
				"see :cite:`Einstein05` again.")
		convey.So(err, convey.ShouldBeNil)

		c := d.Cache()
		convey.So(c.AllCitedKeys(), convey.ShouldResemble, []string{"Einstein05", "Smith19"})
		convey.So(c.BackRefs("Einstein05"), convey.ShouldResemble,
			[]string{"cite-index-0", "cite-index-2"})
		convey.So(c.IsCited("Smith19"), convey.ShouldBeTrue)
	})

	convey.Convey("unknown keys in text are ignored", t, func() {
		d := NewDomain()
		convey.So(d.ProcessCitations("index", "nothing :cite:`ghost` here"), convey.ShouldBeNil)
		convey.So(d.Cache().AllCitedKeys(), convey.ShouldBeEmpty)
	})
}

func TestResolve(t *testing.T) {
	convey.Convey("resolve assigns labels and warns on unresolved keys", t, func() {
		rec, restore := captureWarnings()
		defer restore()

		dir := t.TempDir()
		writeBib(t, dir, "refs.bib", domainTestBib)
		d := NewDomain()
		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)

		bc := NewBibliographyCache(WithBibFiles("refs.bib"), WithEnumeration("arabic", 1))
		d.RegisterBibliography("index", "bib1", bc)
		d.Cache().AddCited("Smith19", "index")
		d.Cache().AddCited("nosuchkey1", "index")

		d.Resolve()

		convey.So(bc.Labels["Smith19"], convey.ShouldEqual, "1")
		convey.So(rec.warnings, convey.ShouldContain, "could not find bibtex key nosuchkey1")
	})

	convey.Convey("duplicate citation across two directives warns", t, func() {
		rec, restore := captureWarnings()
		defer restore()

		dir := t.TempDir()
		writeBib(t, dir, "refs.bib", domainTestBib)
		d := NewDomain()
		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)

		d.RegisterBibliography("index", "bib1",
			NewBibliographyCache(WithBibFiles("refs.bib")))
		d.RegisterBibliography("index", "bib2",
			NewBibliographyCache(WithBibFiles("refs.bib")))

		d.Resolve()

		convey.So(rec.warnings, convey.ShouldContain, "duplicate citation for key Smith19")
		convey.So(rec.warnings, convey.ShouldContain, "duplicate citation for key Einstein05")
	})

	convey.Convey("duplicate label warning names both keys", t, func() {
		rec, restore := captureWarnings()
		defer restore()

		dir := t.TempDir()
		writeBib(t, dir, "refs.bib", `
@misc{Test,
  year = {2000},
}
`)
		writeBib(t, dir, "other.bib", `
@misc{Test2,
  year = {2000},
}
`)
		d := NewDomain()
		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)
		convey.So(d.LoadBibfile(dir, "other.bib", true), convey.ShouldBeNil)

		d.RegisterBibliography("doc1", "bib1",
			NewBibliographyCache(WithBibFiles("refs.bib"), WithEnumeration("arabic", 1)))
		d.RegisterBibliography("doc2", "bib1",
			NewBibliographyCache(WithBibFiles("other.bib"), WithEnumeration("arabic", 1)))

		d.Resolve()

		convey.So(rec.warnings, convey.ShouldContain, "duplicate label 1 for keys Test,Test2")
	})
}

func TestUnusedKeys(t *testing.T) {
	convey.Convey("entries never cited anywhere", t, func() {
		dir := t.TempDir()
		writeBib(t, dir, "refs.bib", domainTestBib)
		d := NewDomain()
		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)

		d.Cache().AddCited("Smith19", "index")
		convey.So(d.UnusedKeys(), convey.ShouldResemble, []string{"Einstein05"})

		d.Cache().AddCited("Einstein05", "intro")
		convey.So(d.UnusedKeys(), convey.ShouldBeEmpty)
	})
}

func TestDomainSnapshotCycle(t *testing.T) {
	convey.Convey("save, reload, continue the build", t, func() {
		dir := t.TempDir()
		writeBib(t, dir, "refs.bib", domainTestBib)
		d := NewDomain()
		convey.So(d.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)
		convey.So(d.ProcessCitations("index", "see :cite:`Smith19`"), convey.ShouldBeNil)

		var buf bytes.Buffer
		convey.So(d.SaveTo(&buf), convey.ShouldBeNil)

		cache, err := LoadSnapshot(&buf)
		convey.So(err, convey.ShouldBeNil)
		d2 := NewDomain(WithCache(cache))

		// the reloaded domain still knows the bibfile, so no re-parse
		// is needed while the file is unchanged
		convey.So(d2.LoadBibfile(dir, "refs.bib", true), convey.ShouldBeNil)
		convey.So(d2.Cache().IsCited("Smith19"), convey.ShouldBeTrue)

		// an incremental rebuild of the document starts from a purge
		d2.PurgeDoc("index")
		convey.So(d2.Cache().IsCited("Smith19"), convey.ShouldBeFalse)
	})
}
