/*
columns.go - Header resolution for spreadsheet imports

Imports accept whatever header casing and common synonyms a stockroom
spreadsheet is likely to carry. Resolution is a fixed alias table, not
per-call string scanning, so the recognized names are documented in one
place:

	ItemID:    itemid, item id, item_id, id
	ItemName:  itemname, item name, item_name, name
	ItemSpecs: itemspecs, item specs, item_specs, specs
	Category:  category
	Stock:     stock, initialstock, initial stock, initial_stock, qty

	UserID:    userid, user id, user_id, id
	UserName:  username, user name, user_name, name
	Role:      role
	UserSpecs: userspecs, user specs, user_specs, specs
	Passcode:  passcode, pass code, pin
*/
package excel

import "strings"

// column describes one logical import column and how to find it.
type column struct {
	Name     string
	Aliases  []string
	Required bool
}

var itemColumns = []column{
	{Name: "ItemID", Aliases: []string{"itemid", "item id", "item_id", "id"}, Required: true},
	{Name: "ItemName", Aliases: []string{"itemname", "item name", "item_name", "name"}, Required: true},
	{Name: "ItemSpecs", Aliases: []string{"itemspecs", "item specs", "item_specs", "specs"}},
	{Name: "Category", Aliases: []string{"category"}},
	{Name: "Stock", Aliases: []string{"stock", "initialstock", "initial stock", "initial_stock", "qty"}, Required: true},
}

var userColumns = []column{
	{Name: "UserID", Aliases: []string{"userid", "user id", "user_id", "id"}, Required: true},
	{Name: "UserName", Aliases: []string{"username", "user name", "user_name", "name"}, Required: true},
	{Name: "Role", Aliases: []string{"role"}, Required: true},
	{Name: "UserSpecs", Aliases: []string{"userspecs", "user specs", "user_specs", "specs"}},
	{Name: "Passcode", Aliases: []string{"passcode", "pass code", "pin"}, Required: true},
}

// resolveColumns maps logical column names to header positions,
// case-insensitively. Missing required columns are reported by name.
func resolveColumns(header []string, cols []column) (map[string]int, []string) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = strings.ToLower(strings.TrimSpace(h))
	}

	positions := make(map[string]int, len(cols))
	var missing []string

	for _, col := range cols {
		idx := -1
		for _, alias := range col.Aliases {
			for i, h := range normalized {
				if h == alias {
					idx = i
					break
				}
			}
			if idx >= 0 {
				break
			}
		}
		if idx >= 0 {
			positions[col.Name] = idx
		} else if col.Required {
			missing = append(missing, col.Name)
		}
	}
	return positions, missing
}

// cell returns the trimmed value at position name, or "" when the
// column is absent or the row is short.
func cell(row []string, positions map[string]int, name string) string {
	i, ok := positions[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
