package site

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectory(t *testing.T) {
	d := NewDirectory(
		Identity{Name: "b", ServiceURL: "http://b/"},
		Identity{Name: "a", ServiceURL: "http://a/"},
		Identity{Name: "a", ServiceURL: "http://a2/"},
	)

	id, ok := d.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "http://a2/", id.ServiceURL)

	list := d.List()
	assert.Len(t, list, 2)
	assert.Equal(t, "a", list[0].Name)

	d.Replace(nil)
	_, ok = d.Get("a")
	assert.False(t, ok)
	assert.Empty(t, d.List())
}

func TestIdentityEndpoint(t *testing.T) {
	id := Identity{ServiceURL: "http://svc/"}
	assert.Equal(t, "http://svc/deploy", id.Endpoint(DeploymentSuffix))
	assert.Equal(t, "http://svc/scm", id.Endpoint(RepositorySuffix))
}
