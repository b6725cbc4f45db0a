package pipeline

import (
	"strings"

	"fleximart/internal/storage"
)

// Table and column names of the target star schema.
const (
	TableCustomers  = "customers"
	TableProducts   = "products"
	TableOrders     = "orders"
	TableOrderItems = "order_items"
)

// Tables returns the target schema in creation order. Orders references
// customers and order_items references both orders and products, so the
// slice order matters for backends that check foreign keys at CREATE time.
func Tables() []storage.TableSpec {
	return []storage.TableSpec{
		{
			Name:       TableCustomers,
			PrimaryKey: "customer_id",
			Columns: []storage.ColumnSpec{
				{Name: "first_name", Type: "varchar(50)"},
				{Name: "last_name", Type: "varchar(50)"},
				{Name: "email", Type: "varchar(100)"},
				{Name: "phone", Type: "varchar(20)", Nullable: true},
				{Name: "city", Type: "varchar(50)", Nullable: true},
				{Name: "registration_date", Type: storage.TypeDate, Nullable: true},
			},
			Unique: []string{"email"},
		},
		{
			Name:       TableProducts,
			PrimaryKey: "product_id",
			Columns: []storage.ColumnSpec{
				{Name: "product_name", Type: "varchar(100)"},
				{Name: "category", Type: "varchar(50)"},
				{Name: "price", Type: storage.TypeDecimal},
				{Name: "stock_quantity", Type: storage.TypeInt, Nullable: true, Default: "0"},
			},
		},
		{
			Name:       TableOrders,
			PrimaryKey: "order_id",
			Columns: []storage.ColumnSpec{
				{Name: "customer_id", Type: storage.TypeInt, References: "customers(customer_id)"},
				{Name: "order_date", Type: storage.TypeDate},
				{Name: "total_amount", Type: storage.TypeDecimal},
				{Name: "status", Type: "varchar(20)", Nullable: true, Default: "'Pending'"},
			},
		},
		{
			Name:       TableOrderItems,
			PrimaryKey: "order_item_id",
			Columns: []storage.ColumnSpec{
				{Name: "order_id", Type: storage.TypeInt, References: "orders(order_id)"},
				{Name: "product_id", Type: storage.TypeInt, References: "products(product_id)"},
				{Name: "quantity", Type: storage.TypeInt},
				{Name: "unit_price", Type: storage.TypeDecimal},
				{Name: "subtotal", Type: storage.TypeDecimal},
			},
		},
	}
}

// RenderDDL renders the schema as a human-readable SQL document for export
// alongside the run. The dialect is generic ANSI-ish DDL meant for review,
// not for execution; backends build their own vendor DDL from Tables().
func RenderDDL() string {
	var b strings.Builder
	b.WriteString("-- Database: fleximart\n\n")

	for _, t := range Tables() {
		b.WriteString("CREATE TABLE ")
		b.WriteString(t.Name)
		b.WriteString(" (\n")

		lines := []string{"    " + t.PrimaryKey + " INT PRIMARY KEY AUTO_INCREMENT"}
		for _, c := range t.Columns {
			line := "    " + c.Name + " " + renderType(c.Type)
			if isUnique(t, c.Name) {
				line += " UNIQUE"
			}
			if !c.Nullable {
				line += " NOT NULL"
			}
			if c.Default != "" {
				line += " DEFAULT " + c.Default
			}
			lines = append(lines, line)
		}
		for _, c := range t.Columns {
			if c.References != "" {
				lines = append(lines, "    FOREIGN KEY ("+c.Name+") REFERENCES "+c.References)
			}
		}

		b.WriteString(strings.Join(lines, ",\n"))
		b.WriteString("\n);\n\n")
	}
	return b.String()
}

func renderType(logical string) string {
	switch logical {
	case storage.TypeInt:
		return "INT"
	case storage.TypeDecimal:
		return "DECIMAL(10,2)"
	case storage.TypeDate:
		return "DATE"
	default:
		return strings.ToUpper(logical)
	}
}

func isUnique(t storage.TableSpec, column string) bool {
	for _, u := range t.Unique {
		if u == column {
			return true
		}
	}
	return false
}
