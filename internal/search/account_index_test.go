package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildListQueryMatchAll(t *testing.T) {
	q := buildListQuery(ListQuery{})
	assert.Contains(t, q["query"], "match_all")
}

func TestBuildListQueryRoleFilter(t *testing.T) {
	q := buildListQuery(ListQuery{Role: "admin"})

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]map[string]interface{})
	assert.Len(t, must, 1)
	assert.Equal(t, map[string]interface{}{"role": "admin"}, must[0]["term"])
}

func TestBuildListQuerySearchAndRole(t *testing.T) {
	q := buildListQuery(ListQuery{Role: "citizen", Search: "abebe"})

	boolQuery := q["query"].(map[string]interface{})["bool"].(map[string]interface{})
	must := boolQuery["must"].([]map[string]interface{})
	assert.Len(t, must, 2)
}
