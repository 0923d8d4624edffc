package uridecode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("no escaping", func(t *testing.T) {
		require.Equal(t, "/hello", string(Decode([]byte("/hello"), nil)))
	})

	t.Run("corners", func(t *testing.T) {
		require.Equal(t, "/hello/", string(Decode([]byte("%2fhello%2f"), nil)))
	})

	t.Run("multiple consecutive", func(t *testing.T) {
		require.Equal(t, "/ hello", string(Decode([]byte("%2f%20hello"), nil)))
	})

	t.Run("incomplete sequence is kept", func(t *testing.T) {
		require.Equal(t, "/a%2", string(Decode([]byte("/a%2"), nil)))
	})

	t.Run("invalid sequence is kept", func(t *testing.T) {
		require.Equal(t, "/%zz/A", string(Decode([]byte("/%zz/%41"), nil)))
	})

	t.Run("4kb slightly escaped", func(t *testing.T) {
		str := "/" + disperse("%5f", "a", 10, 4095)
		buff := make([]byte, 0, 4096)
		decoded := Decode([]byte(str), buff)
		want := "/" + strings.Repeat("_"+strings.Repeat("a", 10), 4095/len("%5f"+strings.Repeat("a", 10)))
		require.Equal(t, want, string(decoded))
		require.Equal(t, 4096, cap(decoded))
	})
}

func TestCharset(t *testing.T) {
	t.Run("utf8", func(t *testing.T) {
		values, used := UTF8().DecodeAll([]byte("/привет"), []byte("a=b"))
		require.Equal(t, "utf-8", used)
		require.Equal(t, []string{"/привет", "a=b"}, values)
	})

	t.Run("fallback on invalid utf8", func(t *testing.T) {
		values, used := UTF8().DecodeAll([]byte("/caf\xe9"), []byte("q"))
		require.Equal(t, Fallback, used)
		require.Equal(t, []string{"/café", "q"}, values)
	})

	t.Run("lookup by label", func(t *testing.T) {
		charset, err := Lookup("cp1251")
		require.NoError(t, err)
		require.Equal(t, "windows-1251", charset.Name())

		values, used := charset.DecodeAll([]byte("/\xef\xf0\xe8\xe2\xe5\xf2"))
		require.Equal(t, "windows-1251", used)
		require.Equal(t, []string{"/привет"}, values)
	})

	t.Run("unknown label", func(t *testing.T) {
		_, err := Lookup("definitely-not-a-charset")
		require.Error(t, err)
	})
}

func BenchmarkDecode(b *testing.B) {
	bench := func(b *testing.B, segment string) {
		str := []byte("/" + strings.Repeat(segment, 4095/len(segment)))
		buff := make([]byte, 0, len(str))
		b.SetBytes(int64(len(str)))
		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			_ = Decode(str, buff[:0])
		}
	}

	b.Run("4kb unescaped", func(b *testing.B) {
		bench(b, "a")
	})

	b.Run("4kb half escaped", func(b *testing.B) {
		bench(b, "%5fa")
	})
}

// disperse makes a string, which consists of 1:proportion substrings a and b respectfully.
// Repeating them doesn't always result in exactly desiredLen bytes
func disperse(a, b string, proportion, desiredLen int) string {
	return strings.Repeat(a+strings.Repeat(b, proportion), desiredLen/(len(a)+len(b)*proportion))
}
