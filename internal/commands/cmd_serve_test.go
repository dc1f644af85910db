package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenAddr(t *testing.T) {
	tests := []struct {
		name string
		addr string
		port string
		want string
	}{
		{"none", "", "", ""},
		{"addr only", "127.0.0.1:4000", "", "127.0.0.1:4000"},
		{"port only", "", "8080", ":8080"},
		{"addr wins over port", ":4000", "8080", ":4000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, listenAddr(tt.addr, tt.port))
		})
	}
}
