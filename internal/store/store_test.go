package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// testStore creates a small Northwind-shaped database:
//
//	June 2017 orders 10248 (ALFKI) and 10249 (BONAP), December order 10250.
//	Revenue: Chai 180+90, Chang 285 (25% discount), Aniseed Syrup 40.
func testStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "retail.sqlite")

	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("creating test database: %v", err)
	}

	ddl := []string{
		`CREATE TABLE Categories (CategoryID INTEGER PRIMARY KEY, CategoryName TEXT)`,
		`CREATE TABLE Products (ProductID INTEGER PRIMARY KEY, ProductName TEXT, CategoryID INTEGER REFERENCES Categories(CategoryID))`,
		`CREATE TABLE Customers (CustomerID TEXT PRIMARY KEY, CompanyName TEXT)`,
		`CREATE TABLE Orders (OrderID INTEGER PRIMARY KEY, CustomerID TEXT REFERENCES Customers(CustomerID), OrderDate TEXT)`,
		`CREATE TABLE "Order Details" (OrderID INTEGER, ProductID INTEGER, UnitPrice REAL, Quantity INTEGER, Discount REAL)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("creating schema: %v", err)
		}
	}

	seed := []struct {
		stmt string
		rows [][]any
	}{
		{`INSERT INTO Categories VALUES (?, ?)`, [][]any{
			{1, "Beverages"}, {2, "Condiments"},
		}},
		{`INSERT INTO Products VALUES (?, ?, ?)`, [][]any{
			{1, "Chai", 1}, {2, "Chang", 1}, {3, "Aniseed Syrup", 2},
		}},
		{`INSERT INTO Customers VALUES (?, ?)`, [][]any{
			{"ALFKI", "Alfreds Futterkiste"}, {"BONAP", "Bon Appetit"},
		}},
		{`INSERT INTO Orders VALUES (?, ?, ?)`, [][]any{
			{10248, "ALFKI", "2017-06-05"},
			{10249, "BONAP", "2017-06-20"},
			{10250, "ALFKI", "2017-12-10"},
		}},
		{`INSERT INTO "Order Details" VALUES (?, ?, ?, ?, ?)`, [][]any{
			{10248, 1, 18.0, 10, 0.0},
			{10248, 3, 10.0, 4, 0.0},
			{10249, 2, 19.0, 20, 0.25},
			{10250, 1, 18.0, 5, 0.0},
		}},
	}
	for _, group := range seed {
		for _, args := range group.rows {
			if _, err := db.Exec(group.stmt, args...); err != nil {
				t.Fatalf("seeding data: %v", err)
			}
		}
	}
	if err := db.Close(); err != nil {
		t.Fatalf("closing seed connection: %v", err)
	}

	st, err := Open(path, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// --- open ---

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.sqlite"), nil)
	if err == nil {
		t.Fatal("Open succeeded on a missing file")
	}
}

// --- execute ---

func TestExecuteSelect(t *testing.T) {
	st := testStore(t)

	res := st.Execute(context.Background(), `SELECT CategoryName FROM Categories ORDER BY CategoryID`)
	if !res.Success {
		t.Fatalf("query failed: %s", res.Err)
	}
	if res.RowCount != 2 || len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", res.RowCount)
	}
	if len(res.Columns) != 1 || res.Columns[0] != "CategoryName" {
		t.Errorf("columns = %v, want [CategoryName]", res.Columns)
	}
	if res.Rows[0][0] != "Beverages" || res.Rows[1][0] != "Condiments" {
		t.Errorf("rows = %v", res.Rows)
	}
	if res.SQLUsed == "" {
		t.Error("SQLUsed is empty")
	}
}

func TestExecuteRevenueArithmetic(t *testing.T) {
	st := testStore(t)

	res := st.Execute(context.Background(), `
SELECT SUM(od.UnitPrice * od.Quantity * (1 - od.Discount)) AS Revenue
FROM "Order Details" od
JOIN Orders o ON od.OrderID = o.OrderID
WHERE date(o.OrderDate) BETWEEN '2017-06-01' AND '2017-06-30'`)
	if !res.Success {
		t.Fatalf("query failed: %s", res.Err)
	}
	got, ok := res.Rows[0][0].(float64)
	if !ok {
		t.Fatalf("revenue cell is %T, want float64", res.Rows[0][0])
	}
	// 18*10 + 10*4 + 19*20*0.75 = 505
	if got != 505.0 {
		t.Errorf("June revenue = %f, want 505", got)
	}
}

func TestExecuteFailure(t *testing.T) {
	st := testStore(t)

	query := `SELECT * FROM NoSuchThing`
	res := st.Execute(context.Background(), query)
	if res.Success {
		t.Fatal("query against a missing table succeeded")
	}
	if res.Err == "" {
		t.Error("Err is empty on failure")
	}
	if res.Rows == nil || res.Columns == nil {
		t.Error("failure result has nil slices")
	}
	if res.SQLUsed != query {
		t.Errorf("SQLUsed = %q, want the submitted query", res.SQLUsed)
	}
}

func TestExecuteAutoFixUnquotedOrderDetails(t *testing.T) {
	st := testStore(t)

	res := st.Execute(context.Background(), `SELECT COUNT(*) FROM Order Details`)
	if !res.Success {
		t.Fatalf("auto-fix did not recover: %s", res.Err)
	}
	if got := res.Rows[0][0].(int64); got != 4 {
		t.Errorf("count = %d, want 4", got)
	}
	if !strings.Contains(res.SQLUsed, `"Order Details"`) {
		t.Errorf("SQLUsed = %q, want quoted table name", res.SQLUsed)
	}
}

func TestExecuteAutoFixYearFunction(t *testing.T) {
	st := testStore(t)

	res := st.Execute(context.Background(), `SELECT COUNT(*) FROM Orders WHERE YEAR(OrderDate) = '2017'`)
	if !res.Success {
		t.Fatalf("auto-fix did not recover: %s", res.Err)
	}
	if got := res.Rows[0][0].(int64); got != 3 {
		t.Errorf("count = %d, want 3", got)
	}
	if !strings.Contains(res.SQLUsed, "strftime") {
		t.Errorf("SQLUsed = %q, want strftime rewrite", res.SQLUsed)
	}
}

// --- schema ---

func TestSchemaDescription(t *testing.T) {
	st := testStore(t)

	schema, err := st.SchemaDescription(context.Background())
	if err != nil {
		t.Fatalf("SchemaDescription: %v", err)
	}

	for _, want := range []string{
		"IMPORTANT NOTES:",
		`"Order Details"`,
		"Table: Orders",
		"Table: Order Details",
		"- OrderID: INTEGER (PRIMARY KEY)",
		"- CategoryID -> Categories(CategoryID)",
		"COMMON QUERY PATTERNS:",
	} {
		if !strings.Contains(schema, want) {
			t.Errorf("schema briefing missing %q", want)
		}
	}

	again, err := st.SchemaDescription(context.Background())
	if err != nil {
		t.Fatalf("SchemaDescription (cached): %v", err)
	}
	if again != schema {
		t.Error("cached briefing differs from first call")
	}
}

func TestTablesReferenced(t *testing.T) {
	st := testStore(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "quoted order details implies orders",
			query: `SELECT * FROM "Order Details" od JOIN Orders o ON od.OrderID = o.OrderID`,
			want:  []string{"Order Details", "Orders"},
		},
		{
			name:  "full join path",
			query: `SELECT * FROM "Order Details" od JOIN Products p ON 1 JOIN Categories c ON 1 JOIN Orders o ON 1`,
			want:  []string{"Categories", "Order Details", "Orders", "Products"},
		},
		{
			name:  "case insensitive",
			query: `select CompanyName from customers`,
			want:  []string{"Customers"},
		},
		{name: "no known tables", query: `SELECT 1`, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := st.TablesReferenced(tt.query)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("table %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

// --- inspection ---

func TestDateRange(t *testing.T) {
	st := testStore(t)

	first, last, err := st.DateRange(context.Background())
	if err != nil {
		t.Fatalf("DateRange: %v", err)
	}
	if first != "2017-06-05" || last != "2017-12-10" {
		t.Errorf("range = %s..%s, want 2017-06-05..2017-12-10", first, last)
	}
}

func TestAvailableYears(t *testing.T) {
	st := testStore(t)

	years, err := st.AvailableYears(context.Background())
	if err != nil {
		t.Fatalf("AvailableYears: %v", err)
	}
	if len(years) != 1 || years[0] != 2017 {
		t.Errorf("years = %v, want [2017]", years)
	}
}

func TestCounts(t *testing.T) {
	st := testStore(t)

	counts, err := st.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}

	want := map[string]int64{
		"Categories":    2,
		"Products":      3,
		"Customers":     2,
		"Orders":        3,
		"Order Details": 4,
	}
	if len(counts) != len(want) {
		t.Fatalf("got %d tables, want %d", len(counts), len(want))
	}
	for _, tc := range counts {
		if want[tc.Name] != tc.Count {
			t.Errorf("%s count = %d, want %d", tc.Name, tc.Count, want[tc.Name])
		}
	}
}

func TestCheckQuery(t *testing.T) {
	st := testStore(t)

	plan, issues := st.CheckQuery(context.Background(), `SELECT COUNT(*) FROM Orders`)
	if len(issues) != 0 {
		t.Fatalf("valid query reported issues: %v", issues)
	}
	if len(plan) == 0 {
		t.Error("valid query produced no plan")
	}

	_, issues = st.CheckQuery(context.Background(), `SELECT * FROM NoSuchThing`)
	if len(issues) == 0 {
		t.Error("invalid query reported no issues")
	}
}
