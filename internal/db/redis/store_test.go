package redis

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/bookscout/internal/db"
	"github.com/kailas-cloud/bookscout/internal/domain"
	"github.com/kailas-cloud/bookscout/internal/domain/search/filter"
)

func newTestStore(t *testing.T) (*Store, *mock.Client) {
	t.Helper()
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	return NewStoreForTest(c, true), c
}

func isFTSearch(cmd []string) bool { return cmd[0] == "FT.SEARCH" }

func mustIndex(t *testing.T, b *db.IndexBuilder) *db.IndexDefinition {
	t.Helper()
	def, err := b.Build()
	if err != nil {
		t.Fatalf("build index: %v", err)
	}
	return def
}

// --- client.go ---

func TestPing(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewStore_RequiresAddrs(t *testing.T) {
	if _, err := NewStore(Config{}); err == nil {
		t.Fatal("expected error without addrs")
	}
}

func TestWaitForReady_Timeout(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(errors.New("connection refused"))).
		AnyTimes()

	err := s.WaitForReady(context.Background(), 250*time.Millisecond)
	if err == nil || !strings.Contains(err.Error(), "timeout waiting for database") {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

// --- hash.go ---

func TestHGetAll(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "book:7")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"title":      mock.RedisString("Neuromancer"),
			"rating_avg": mock.RedisString("4.1"),
		})))

	m, err := s.HGetAll(context.Background(), "book:7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["title"] != "Neuromancer" || m["rating_avg"] != "4.1" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestHGetAll_MissingKey(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "book:404")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{})))

	_, err := s.HGetAll(context.Background(), "book:404")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestScan_FollowsCursor(t *testing.T) {
	s, c := newTestStore(t)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisString("17"),
					mock.RedisArray(mock.RedisString("price:1")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisString("0"),
				mock.RedisArray(mock.RedisString("price:2"), mock.RedisString("price:3")),
			))
		}).Times(2)

	keys, err := s.Scan(context.Background(), "price:*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %v", keys)
	}
}

// --- kv.go ---

func TestGet_NotFound(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "price:1")).
		Return(mock.Result(mock.RedisNil()))

	_, err := s.Get(context.Background(), "price:1")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestGet(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "price:1")).
		Return(mock.Result(mock.RedisString(`{"book_id":1}`)))

	data, err := s.Get(context.Background(), "price:1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `{"book_id":1}` {
		t.Errorf("got %q", data)
	}
}

func TestSetWithTTL(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "emb:abc", "v", "EX", "3600")).
		Return(mock.Result(mock.RedisString("OK")))

	if err := s.SetWithTTL(context.Background(), "emb:abc", []byte("v"), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestIncrBy(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("INCRBY", "budget:day", "120")).
		Return(mock.Result(mock.RedisInt64(120)))

	if err := s.IncrBy(context.Background(), "budget:day", 120); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExpireNX(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("EXPIRE", "budget:day", "86400", "NX")).
		Return(mock.Result(mock.RedisInt64(1)))

	if err := s.ExpireNX(context.Background(), "budget:day", 24*time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// --- index.go ---

func TestCreateIndex_SendsSchema(t *testing.T) {
	s, c := newTestStore(t)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			got = cmd.Commands()
			return mock.Result(mock.RedisString("OK"))
		})

	def := mustIndex(t, db.NewIndex("books:idx").
		Prefix("book:").
		Text("title").
		TagList("genres", "|").
		NumericSortable("rating_count").
		VectorHNSW("embedding", 384, db.DistanceCosine, 16, 200))

	if err := s.CreateIndex(context.Background(), def); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(got, " ")
	for _, want := range []string{
		"FT.CREATE books:idx ON HASH PREFIX 1 book: SCHEMA",
		"genres TAG SEPARATOR |",
		"rating_count NUMERIC SORTABLE",
		"embedding VECTOR HNSW 10 TYPE FLOAT32 DIM 384 DISTANCE_METRIC COSINE M 16 EF_CONSTRUCTION 200",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("command %q missing %q", joined, want)
		}
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index already exists")))

	def := mustIndex(t, db.NewIndex("books:idx").Text("title"))
	if err := s.CreateIndex(context.Background(), def); !errors.Is(err, db.ErrIndexExists) {
		t.Fatalf("expected ErrIndexExists, got %v", err)
	}
}

func TestCreateIndex_InvalidDefinitionSendsNothing(t *testing.T) {
	s, _ := newTestStore(t)
	def := &db.IndexDefinition{Name: "books idx", Fields: []db.IndexField{{Name: "title", Type: db.IndexFieldText}}}
	if err := s.CreateIndex(context.Background(), def); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestSupportsTextSearch(t *testing.T) {
	if !NewStoreForTest(nil, true).SupportsTextSearch(context.Background()) {
		t.Error("redis store configured with text search should report it")
	}
	if NewStoreForTest(nil, false).SupportsTextSearch(context.Background()) {
		t.Error("valkey store should not report text search")
	}
}

func TestBuildFieldArgs(t *testing.T) {
	tests := []struct {
		name  string
		field db.IndexField
		want  []string
	}{
		{"text", db.IndexField{Name: "title", Type: db.IndexFieldText}, []string{"title", "TEXT"}},
		{"sortable numeric", db.IndexField{Name: "rating_count", Type: db.IndexFieldNumeric, Sortable: true},
			[]string{"rating_count", "NUMERIC", "SORTABLE"}},
		{"tag", db.IndexField{Name: "genres", Type: db.IndexFieldTag, TagSeparator: "|"},
			[]string{"genres", "TAG", "SEPARATOR", "|"}},
		{"vector defaults to HNSW cosine", db.IndexField{Name: "embedding", Type: db.IndexFieldVector, VectorDim: 4},
			[]string{"embedding", "VECTOR", "HNSW", "6", "TYPE", "FLOAT32", "DIM", "4", "DISTANCE_METRIC", "COSINE"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := buildFieldArgs(&tc.field)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tc.want) {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBuildFieldArgs_Errors(t *testing.T) {
	if _, err := buildFieldArgs(&db.IndexField{Type: db.IndexFieldTag}); err == nil {
		t.Error("expected error for empty field name")
	}
	if _, err := buildFieldArgs(&db.IndexField{Name: "f", Type: db.IndexFieldType(99)}); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := buildFieldArgs(&db.IndexField{Name: "f", Type: db.IndexFieldVector}); err == nil {
		t.Error("expected error for zero vector dim")
	}
}

// --- search.go ---

func TestSearchKNN_QueryShape(t *testing.T) {
	s, c := newTestStore(t)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(isFTSearch)).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			got = cmd.Commands()
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(1),
				mock.RedisString("book:1"),
				mock.RedisArray(
					mock.RedisString("__vector_score"), mock.RedisString("0.25"),
					mock.RedisString("title"), mock.RedisString("Dune"),
				),
			))
		})

	level, _ := filter.NewMatch("reading_level", "beginner")
	expr, _ := filter.All(level)

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName:    "books:idx",
		VectorField:  "embedding",
		Filters:      expr,
		Vector:       []float32{0.1, 0.2},
		K:            60,
		ReturnFields: []string{"title"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got[2] != "(@reading_level:{beginner})=>[KNN 60 @embedding $BLOB]" {
		t.Errorf("query = %q", got[2])
	}
	if !slices.Equal(got[3:7], []string{"RETURN", "2", "title", "__vector_score"}) {
		t.Errorf("expected RETURN with score field, got %v", got[3:7])
	}
	i := slices.Index(got, "LIMIT")
	if i < 0 || got[i+1] != "0" || got[i+2] != "60" {
		t.Errorf("expected LIMIT 0 60 in %v", got)
	}
	if j := slices.Index(got, "BLOB"); j < 0 || len(got[j+1]) != 8 {
		t.Errorf("expected 8-byte FLOAT32 blob in %v", got)
	}

	if len(res.Entries) != 1 || res.Entries[0].Fields["title"] != "Dune" {
		t.Fatalf("unexpected entries: %+v", res.Entries)
	}
	if res.Entries[0].Score != 0.25 {
		t.Errorf("score = %v, want distance 0.25", res.Entries[0].Score)
	}
	if _, ok := res.Entries[0].Fields["__vector_score"]; ok {
		t.Error("__vector_score should be stripped from fields")
	}
}

func TestSearchKNN_NoFilter(t *testing.T) {
	s, c := newTestStore(t)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(isFTSearch)).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			got = cmd.Commands()
			return mock.Result(mock.RedisArray(mock.RedisInt64(0)))
		})

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "idx", VectorField: "embedding", Vector: []float32{1}, K: 5,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[2] != "*=>[KNN 5 @embedding $BLOB]" {
		t.Errorf("query = %q", got[2])
	}
	if slices.Contains(got, "RETURN") {
		t.Error("no RETURN clause expected without return fields")
	}
	if res.Total != 0 || len(res.Entries) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(nil, true)
	ctx := context.Background()

	cases := []*db.KNNQuery{
		{VectorField: "v", Vector: []float32{0.1}, K: 10},
		{IndexName: "idx", Vector: []float32{0.1}, K: 10},
		{IndexName: "idx", VectorField: "v", K: 10},
		{IndexName: "idx", VectorField: "v", Vector: []float32{0.1}},
	}
	for _, q := range cases {
		if _, err := s.SearchKNN(ctx, q); err == nil {
			t.Errorf("expected error for %+v", q)
		}
	}
}

func TestSearchKNN_Error(t *testing.T) {
	s, c := newTestStore(t)
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(isFTSearch)).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "idx", VectorField: "v", Vector: []float32{1}, K: 1})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) || dbErr.Op != db.OpSearch {
		t.Fatalf("expected FT.SEARCH db.Error, got %v", err)
	}
}

func TestSearchText(t *testing.T) {
	s, c := newTestStore(t)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(isFTSearch)).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			got = cmd.Commands()
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(2),
				mock.RedisString("book:3"),
				mock.RedisString("2.5"),
				mock.RedisArray(mock.RedisString("title"), mock.RedisString("The Hobbit")),
				mock.RedisString("book:4"),
				mock.RedisString("not-a-score"),
				mock.RedisArray(mock.RedisString("title"), mock.RedisString("Broken")),
			))
		})

	genre, _ := filter.NewAnyOf("genres", "fantasy")
	expr, _ := filter.All(genre)
	res, err := s.SearchText(context.Background(), &db.TextQuery{
		IndexName: "books:idx",
		Field:     "title",
		Query:     "hobbit-adventure",
		Filters:   expr,
		Limit:     20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[2] != `@genres:{fantasy} @title:(hobbit\-adventure)` {
		t.Errorf("query = %q", got[2])
	}
	if !slices.Contains(got, "WITHSCORES") {
		t.Errorf("expected WITHSCORES in %v", got)
	}
	if res.Total != 2 || len(res.Entries) != 1 {
		t.Fatalf("malformed hit should be skipped: %+v", res)
	}
	if res.Entries[0].Score != 2.5 || res.Entries[0].Fields["title"] != "The Hobbit" {
		t.Errorf("unexpected entry: %+v", res.Entries[0])
	}
}

func TestSearchText_NotSupported(t *testing.T) {
	s := NewStoreForTest(nil, false)
	_, err := s.SearchText(context.Background(), &db.TextQuery{IndexName: "idx", Field: "title", Query: "x", Limit: 1})
	if !errors.Is(err, domain.ErrTextSearchNotSupported) {
		t.Fatalf("expected ErrTextSearchNotSupported, got %v", err)
	}
}

func TestSearchText_Validation(t *testing.T) {
	s := NewStoreForTest(nil, true)
	ctx := context.Background()

	cases := []*db.TextQuery{
		{Field: "title", Query: "x", Limit: 1},
		{IndexName: "idx", Query: "x", Limit: 1},
		{IndexName: "idx", Field: "title", Query: "   ", Limit: 1},
		{IndexName: "idx", Field: "title", Query: "x"},
	}
	for _, q := range cases {
		if _, err := s.SearchText(ctx, q); err == nil {
			t.Errorf("expected error for %+v", q)
		}
	}
}

func TestSearchSorted(t *testing.T) {
	s, c := newTestStore(t)

	var got []string
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(isFTSearch)).
		DoAndReturn(func(_ context.Context, cmd rueidis.Completed) rueidis.RedisResult {
			got = cmd.Commands()
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(2),
				mock.RedisString("book:1"),
				mock.RedisArray(mock.RedisString("rating_count"), mock.RedisString("900")),
				mock.RedisString("book:2"),
				mock.RedisArray(mock.RedisString("rating_count"), mock.RedisString("40")),
			))
		})

	res, err := s.SearchSorted(context.Background(), &db.SortedQuery{
		IndexName: "books:idx",
		SortBy:    "rating_count",
		Desc:      true,
		Limit:     2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"FT.SEARCH", "books:idx", "*", "SORTBY", "rating_count", "DESC", "LIMIT", "0", "2", "DIALECT", "2"}
	if !slices.Equal(got, want) {
		t.Errorf("command = %v, want %v", got, want)
	}
	if res.Total != 2 || res.Entries[1].Key != "book:2" || res.Entries[0].Fields["rating_count"] != "900" {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestSearchSorted_Validation(t *testing.T) {
	s := NewStoreForTest(nil, true)
	if _, err := s.SearchSorted(context.Background(), &db.SortedQuery{IndexName: "idx"}); err == nil {
		t.Error("expected error for zero limit")
	}
}

// --- filter rendering ---

func TestBuildFilter(t *testing.T) {
	lo, hi := 1990.0, 2000.0
	minRating := 4.5

	rating, _ := filter.NewRange("rating_avg", &minRating, nil)
	years, _ := filter.NewRange("published_year", &lo, &hi)
	pages, _ := filter.NewRange("page_count", nil, &hi)
	genres, _ := filter.NewAnyOf("genres", "science fiction", "fantasy")
	level, _ := filter.NewMatch("reading_level", "advanced")

	tests := []struct {
		name  string
		conds []filter.Condition
		want  string
	}{
		{"empty", nil, ""},
		{"lower bound", []filter.Condition{rating}, "@rating_avg:[4.5 +inf]"},
		{"upper bound", []filter.Condition{pages}, "@page_count:[-inf 2000]"},
		{"closed range", []filter.Condition{years}, "@published_year:[1990 2000]"},
		{"any-of tags escaped", []filter.Condition{genres}, `@genres:{science\ fiction | fantasy}`},
		{"conjunction", []filter.Condition{level, rating}, "@reading_level:{advanced} @rating_avg:[4.5 +inf]"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			expr, err := filter.All(tc.conds...)
			if err != nil {
				t.Fatalf("All: %v", err)
			}
			if got := buildFilter(expr); got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestEscape(t *testing.T) {
	tests := []struct {
		in         string
		keepSpaces bool
		want       string
	}{
		{`harry "potter" @home {1}`, true, `harry \"potter\" \@home \{1\}`},
		{"children's books", false, `children\'s\ books`},
		{"ciencia ficción", false, `ciencia\ ficción`},
		{`a\b`, true, `a\\b`},
	}
	for _, tc := range tests {
		if got := escape(tc.in, tc.keepSpaces); got != tc.want {
			t.Errorf("escape(%q, %v) = %q, want %q", tc.in, tc.keepSpaces, got, tc.want)
		}
	}
}
