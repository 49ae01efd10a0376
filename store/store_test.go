package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/use-agent/orgscope/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func str(s string) *string { return &s }
func num(n int64) *int64   { return &n }

func record(id string, followers *int64, industry string) *models.CompanyRecord {
	return &models.CompanyRecord{
		PageID: id,
		Profile: models.CompanyProfile{
			Name:           str("Company " + id),
			Followers:      followers,
			Industry:       models.StringPtr(industry),
			SourceAboutURL: "https://www.linkedin.com/company/" + id + "/about/",
		},
		ScrapedAt: time.Date(2026, 1, 2, 3, 4, 5, 6, time.UTC),
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "a", "b")
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error: %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(filepath.Join(dir, DBFile)); err != nil {
			t.Errorf("database file not created: %v", err)
		}
	})

	t.Run("CreateIfNotExists=false requires an existing database", func(t *testing.T) {
		t.Parallel()

		if _, err := Open(t.TempDir(), Options{}); err == nil {
			t.Fatal("Open() succeeded without a database")
		}
	})
}

func TestFindInsert(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	ctx := context.Background()

	got, err := s.Find(ctx, "acme")
	if err != nil || got != nil {
		t.Fatalf("Find() on empty store = %v, %v; want nil, nil", got, err)
	}

	rec := record("acme", num(1234), "Manufacturing")
	rec.Profile.Website = str("https://acme.example/")
	rec.Partial = true
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	got, err = s.Find(ctx, "acme")
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestInsertReplacesWholeRecord(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	ctx := context.Background()

	first := record("acme", num(10), "Manufacturing")
	first.Profile.Tagline = str("old tagline")
	first.Partial = true
	if err := s.Insert(ctx, first); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	second := record("acme", nil, "")
	second.ScrapedAt = first.ScrapedAt.Add(time.Hour)
	if err := s.Insert(ctx, second); err != nil {
		t.Fatalf("Insert() error: %v", err)
	}

	got, err := s.Find(ctx, "acme")
	if err != nil {
		t.Fatalf("Find() error: %v", err)
	}
	if diff := cmp.Diff(second, got); diff != "" {
		t.Errorf("record not replaced (-want +got):\n%s", diff)
	}
}

func TestInsertRequiresPageID(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	if err := s.Insert(context.Background(), &models.CompanyRecord{}); err == nil {
		t.Fatal("Insert() accepted a record without page id")
	}
}

func TestQuery(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	ctx := context.Background()

	for _, rec := range []*models.CompanyRecord{
		record("alpha", num(500), "Software"),
		record("beta", num(5000), "Software"),
		record("gamma", num(50), "Retail"),
		record("delta", nil, "Software"),
		record("under_score", num(7), "Retail"),
	} {
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert(%s) error: %v", rec.PageID, err)
		}
	}

	tests := []struct {
		name string
		q    models.CompanyQuery
		want []string
	}{
		{"all ordered by followers", models.CompanyQuery{}, []string{"beta", "alpha", "gamma", "under_score", "delta"}},
		{"min followers", models.CompanyQuery{MinFollowers: num(500)}, []string{"beta", "alpha"}},
		{"max followers", models.CompanyQuery{MaxFollowers: num(50)}, []string{"gamma", "under_score"}},
		{"range", models.CompanyQuery{MinFollowers: num(50), MaxFollowers: num(500)}, []string{"alpha", "gamma"}},
		{"industry exact", models.CompanyQuery{Industry: "Software"}, []string{"beta", "alpha", "delta"}},
		{"industry is case sensitive", models.CompanyQuery{Industry: "software"}, nil},
		{"name substring ignores case", models.CompanyQuery{Name: "ALPHA"}, []string{"alpha"}},
		{"underscore matches literally", models.CompanyQuery{Name: "r_s"}, []string{"under_score"}},
		{"percent matches literally", models.CompanyQuery{Name: "%"}, nil},
		{"limit", models.CompanyQuery{Limit: 2}, []string{"beta", "alpha"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.q)
			if err != nil {
				t.Fatalf("Query() error: %v", err)
			}
			var ids []string
			for _, r := range got {
				ids = append(ids, r.PageID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("escapeLike() = %q", got)
	}
}

func TestQuery_UnicodeName(t *testing.T) {
	t.Parallel()
	s := setupTestStore(t)
	ctx := context.Background()

	ecole := record("ecole", num(10), "Education")
	ecole.Profile.Name = str("ÉCOLE Polytechnique")
	zurich := record("zurich", num(5), "Insurance")
	zurich.Profile.Name = str("Zürich Versicherung")
	for _, rec := range []*models.CompanyRecord{ecole, zurich} {
		if err := s.Insert(ctx, rec); err != nil {
			t.Fatalf("Insert(%s) error: %v", rec.PageID, err)
		}
	}

	tests := []struct {
		name string
		want []string
	}{
		{"ÉCOLE", []string{"ecole"}},
		{"école", []string{"ecole"}},
		{"Polytechnique", []string{"ecole"}},
		{"ZÜRICH", []string{"zurich"}},
		{"éco", []string{"ecole"}},
		{"ecole", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, models.CompanyQuery{Name: tt.name})
			if err != nil {
				t.Fatalf("Query() error: %v", err)
			}
			var ids []string
			for _, r := range got {
				ids = append(ids, r.PageID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("ids mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOpen_BackfillsFoldedNames(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	// A database written before name_folded existed.
	db, err := sql.Open("sqlite", filepath.Join(dir, DBFile)+"?mode=rwc")
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`
	CREATE TABLE companies (
		page_id TEXT PRIMARY KEY, name TEXT, followers INTEGER, tagline TEXT,
		description TEXT, industry TEXT, website TEXT, headquarters TEXT,
		founded TEXT, company_size TEXT, specialties TEXT,
		employees_on_linkedin TEXT, source_about_url TEXT NOT NULL,
		partial INTEGER NOT NULL DEFAULT 0, scraped_at INTEGER NOT NULL
	);
	INSERT INTO companies (page_id, name, source_about_url, scraped_at)
	VALUES ('ecole', 'ÉCOLE Polytechnique', 'https://www.linkedin.com/company/ecole/about/', 0);`)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	s, err := Open(dir, DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	defer s.Close()

	got, err := s.Query(context.Background(), models.CompanyQuery{Name: "école"})
	if err != nil {
		t.Fatalf("Query() error: %v", err)
	}
	if len(got) != 1 || got[0].PageID != "ecole" {
		t.Errorf("Query() = %v, want [ecole]", got)
	}
}
