package transform

import "strings"

// Table is a lookup table whose declared order matters: substring
// fallback walks it front to back and the first key found wins.
type Table struct {
	index map[string]string
	order []entry
}

type entry struct {
	key   string
	value string
}

func newTable(entries ...entry) *Table {
	m := &Table{
		index: make(map[string]string, len(entries)),
		order: entries,
	}
	for _, e := range entries {
		m.index[e.key] = e.value
	}
	return m
}

func group(value string, keys ...string) []entry {
	out := make([]entry, len(keys))
	for i, k := range keys {
		out[i] = entry{key: k, value: value}
	}
	return out
}

func concat(groups ...[]entry) []entry {
	var out []entry
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// lookup returns the exact match, else the first key contained in s.
// exact reports whether the match was exact.
func (m *Table) lookup(s string) (value string, exact bool, found bool) {
	if v, ok := m.index[s]; ok {
		return v, true, true
	}
	for _, e := range m.order {
		if strings.Contains(s, e.key) {
			return e.value, false, true
		}
	}
	return "", false, false
}

// Len returns the number of keys in the table.
func (m *Table) Len() int {
	return len(m.order)
}

// NewTable builds a table from variant → canonical pairs in the order given.
func NewTable(pairs ...[2]string) *Table {
	entries := make([]entry, len(pairs))
	for i, p := range pairs {
		entries[i] = entry{key: strings.ToLower(p[0]), value: p[1]}
	}
	return newTable(entries...)
}

// DefaultUnits is the canonical unit table. Keys are lower case.
var DefaultUnits = newTable(concat(
	// weight
	group("kg", "kg", "kgs", "kilogramo", "kilogramos", "kilo", "kilos"),
	group("g", "g", "gr", "grs", "gramo", "gramos"),
	group("mg", "mg", "miligramo", "miligramos"),
	group("lb", "lb", "lbs", "libra", "libras"),
	group("oz", "oz", "onza", "onzas"),
	// volume
	group("l", "l", "lt", "lts", "litro", "litros"),
	group("ml", "ml", "mililitro", "mililitros"),
	group("gal", "gal", "galon", "galones"),
	// length
	group("m", "m", "mt", "mts", "metro", "metros"),
	group("cm", "cm", "centimetro", "centimetros"),
	group("mm", "mm", "milimetro", "milimetros"),
	group("in", "in", "inch", "pulgada", "pulgadas"),
	group("ft", "ft", "pie", "pies"),
	// count
	group("unidad", "u", "un", "und", "unid", "unidad", "unidades"),
	group("pieza", "pz", "pza", "pieza", "piezas"),
	group("par", "par", "pares"),
	group("docena", "docena", "doc"),
	group("caja", "caja", "cajas"),
	group("paquete", "paquete", "paq", "pack"),
)...)

// DefaultCategories is the canonical category table. Keys are lower case.
var DefaultCategories = newTable(concat(
	// apparel
	group("camisas", "camisa", "camisas", "shirt", "shirts"),
	group("camisetas", "remera", "remeras", "camiseta", "camisetas", "t-shirt", "t-shirts", "tshirt"),
	group("pantalones", "pantalon", "pantalones", "pants", "jeans", "jean"),
	group("shorts", "short", "shorts", "bermuda", "bermudas"),
	group("vestidos", "vestido", "vestidos", "dress", "dresses"),
	group("faldas", "falda", "faldas", "skirt", "skirts"),
	group("chaquetas", "chaqueta", "chaquetas", "jacket", "jackets"),
	group("abrigos", "abrigo", "abrigos", "coat", "coats"),
	// footwear
	group("zapatos", "zapato", "zapatos", "shoe", "shoes"),
	group("zapatillas", "zapatilla", "zapatillas", "sneaker", "sneakers", "tenis"),
	group("botas", "bota", "botas", "boot", "boots"),
	group("sandalias", "sandalia", "sandalias", "sandal", "sandals"),
	// accessories
	group("accesorios", "accesorio", "accesorios", "accessory", "accessories"),
	group("bolsos", "bolso", "bolsos", "bag", "bags"),
	group("carteras", "cartera", "carteras", "purse"),
	group("billeteras", "wallet", "billetera", "billeteras"),
	group("cinturones", "cinturon", "cinturones", "belt", "belts"),
	group("gorras", "gorra", "gorras", "cap", "caps"),
	group("sombreros", "sombrero", "sombreros", "hat", "hats"),
	// other
	group("otros", "otro", "otros", "other", "misc", "varios"),
)...)
