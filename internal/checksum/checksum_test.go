package checksum

import "testing"

func TestSum_KnownDigest(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != empty {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestMatches(t *testing.T) {
	doc := []byte("# Features\n")
	if !Matches(Sum(doc), doc) {
		t.Error("digest of the same content should match")
	}
	if Matches(Sum(doc), []byte("# Workflows\n")) {
		t.Error("different content should not match")
	}
	if Matches("", nil) {
		t.Error("empty sum should never match")
	}
}
