package swift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedResolveURL(t *testing.T) {
	f := Fixed{StorageURL: "https://swift.example.com/v1/AUTH_x", AuthToken: "tok123"}
	url, headers, err := f.ResolveURL("mycontainer", "myobject")
	require.NoError(t, err)
	assert.Equal(t, "https://swift.example.com/v1/AUTH_x/mycontainer/myobject", url)
	assert.Equal(t, "tok123", headers.Get("X-Auth-Token"))
}

func TestFixedInvalidURL(t *testing.T) {
	f := Fixed{}
	_, _, err := f.ResolveURL("c", "o")
	assert.Error(t, err)
}
