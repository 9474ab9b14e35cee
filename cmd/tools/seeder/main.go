package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/alexedwards/argon2id"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Seeds a development register with a couple of operators and a small
// catalog carrying real, checksum-valid barcodes.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedOperators(db)
	seedCatalog(db)

	log.Println("Seeding completed successfully!")
}

func seedOperators(db *sql.DB) {
	operators := []struct {
		Username    string
		DisplayName string
		Role        string
		Password    string
	}{
		{"admin", "Store Manager", "admin", "changeme-admin"},
		{"till1", "Till One", "cashier", "changeme-till1"},
		{"till2", "Till Two", "cashier", "changeme-till2"},
	}

	log.Println("Seeding Operators...")
	for _, op := range operators {
		hash, err := argon2id.CreateHash(op.Password, argon2id.DefaultParams)
		if err != nil {
			log.Fatalf("Failed to hash password for %s: %v", op.Username, err)
		}
		_, err = db.Exec(`
			INSERT INTO operators (username, display_name, password_hash, role)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (username) DO NOTHING;
		`, op.Username, op.DisplayName, hash, op.Role)
		if err != nil {
			log.Printf("Failed to seed operator %s: %v", op.Username, err)
		}
	}
}

func seedCatalog(db *sql.DB) {
	categories := []string{"Beverages", "Snacks", "Bakery", "Household", "Produce"}

	log.Println("Seeding Categories...")
	catIDs := make(map[string]string)
	for _, name := range categories {
		var id string
		err := db.QueryRow("SELECT id FROM categories WHERE name = $1", name).Scan(&id)
		if err == sql.ErrNoRows {
			err = db.QueryRow("INSERT INTO categories (name) VALUES ($1) RETURNING id", name).Scan(&id)
		}
		if err != nil {
			log.Printf("Failed to seed category %s: %v", name, err)
			continue
		}
		catIDs[name] = id
	}

	products := []struct {
		Barcode  string
		Name     string
		Price    int64
		TaxClass string
		Category string
		Stock    int
		MinStock int
	}{
		{"4006381333931", "Stabilo Boss Highlighter", 249, "STANDARD", "Household", 120, 10},
		{"036000291452", "Kleenex Pocket Tissues", 149, "STANDARD", "Household", 200, 20},
		{"96385074", "Espresso Shot Can", 199, "REDUCED", "Beverages", 80, 12},
		{"5000112637922", "Cola 330ml", 120, "REDUCED", "Beverages", 300, 48},
		{"4006972049524", "Sea Salt Crisps 150g", 229, "REDUCED", "Snacks", 150, 24},
		{"4012345678901", "Sourdough Loaf", 399, "REDUCED", "Bakery", 25, 5},
		{"9780201379624", "Crossword Paperback", 999, "EXEMPT", "Household", 15, 2},
		{"40170725", "Chewing Gum Strip", 89, "STANDARD", "Snacks", 400, 50},
	}

	log.Println("Seeding Products...")
	for _, p := range products {
		var categoryID any
		if id, ok := catIDs[p.Category]; ok {
			categoryID = id
		}
		_, err := db.Exec(`
			INSERT INTO products (barcode, name, unit_price, tax_class, stock, min_stock, category_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (barcode) DO UPDATE SET
				name = EXCLUDED.name,
				unit_price = EXCLUDED.unit_price,
				tax_class = EXCLUDED.tax_class,
				min_stock = EXCLUDED.min_stock,
				category_id = EXCLUDED.category_id;
		`, p.Barcode, p.Name, p.Price, p.TaxClass, p.Stock, p.MinStock, categoryID)
		if err != nil {
			log.Printf("Failed to seed product %s: %v", p.Name, err)
		}
	}
}
