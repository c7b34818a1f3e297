package schema

import (
	"testing"
)

func TestToDBName(t *testing.T) {
	maps := map[string]string{
		"":                          "",
		"X":                         "x",
		"ThisIsATest":               "this_is_a_test",
		"userId":                    "user_id",
		"AuthorID":                  "author_id",
		"HTTPCode":                  "http_code",
		"createdAt":                 "created_at",
		"Name":                      "name",
		"abc_and_jkl":               "abc_and_jkl",
		"employeeMobilityValuation": "employee_mobility_valuation",
	}

	for key, value := range maps {
		if toDBName(key) != value {
			t.Errorf("%v toDBName should equal %v, but got %v", key, value, toDBName(key))
		}
	}
}

func TestNamingStrategy(t *testing.T) {
	ns := NamingStrategy{}

	if got := ns.TableName("User"); got != "users" {
		t.Errorf("TableName(User) = %v", got)
	}
	if got := ns.TableName("Category"); got != "categories" {
		t.Errorf("TableName(Category) = %v", got)
	}
	if got := ns.ColumnName("authorId"); got != "author_id" {
		t.Errorf("ColumnName(authorId) = %v", got)
	}
	if got := ns.ForeignKeyName("User"); got != "user_id" {
		t.Errorf("ForeignKeyName(User) = %v", got)
	}

	singular := NamingStrategy{SingularTable: true, TablePrefix: "app_"}
	if got := singular.TableName("User"); got != "app_user" {
		t.Errorf("singular TableName(User) = %v", got)
	}
}
