/*
Copyright (C) 2026  MemCP Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package objstore

import (
	"testing"
)

func TestFileStorePutGetDelete(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	if err := s.Put("ks/k/data_o1-o1_t0-t0_n0-n0_s5_p0.bin", []byte("hello")); err != nil {
		t.Fatalf("put: %v", err)
	}
	body, ok, err := s.Get("ks/k/data_o1-o1_t0-t0_n0-n0_s5_p0.bin")
	if err != nil || !ok || string(body) != "hello" {
		t.Fatalf("get = %q, ok=%v, err=%v, want hello/true/nil", body, ok, err)
	}

	if err := s.Delete("ks/k/data_o1-o1_t0-t0_n0-n0_s5_p0.bin"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, ok, err = s.Get("ks/k/data_o1-o1_t0-t0_n0-n0_s5_p0.bin")
	if err != nil || ok {
		t.Fatalf("get after delete: ok=%v, err=%v, want false/nil", ok, err)
	}
}

func TestFileStoreGetMissingKeyIsNotAnError(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	_, ok, err := s.Get("never/written")
	if err != nil || ok {
		t.Fatalf("get missing = ok=%v, err=%v, want false/nil", ok, err)
	}
}

func TestFileStoreDeleteMissingKeyIsNotAnError(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := s.Delete("never/written"); err != nil {
		t.Fatalf("delete missing key: %v", err)
	}
}

func TestFileStoreListPagePrefixAndOrder(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	for _, key := range []string{"ks/k/c.bin", "ks/k/a.bin", "ks/k/b.bin", "ks/other/x.bin"} {
		if err := s.Put(key, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	result, err := s.ListPage("ks/k/", "", "", 0)
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(result.Objects) != 3 {
		t.Fatalf("objects = %+v, want 3 keys under ks/k/", result.Objects)
	}
	want := []string{"ks/k/a.bin", "ks/k/b.bin", "ks/k/c.bin"}
	for i, obj := range result.Objects {
		if obj.Key != want[i] {
			t.Fatalf("objects[%d] = %q, want %q (lexicographic order)", i, obj.Key, want[i])
		}
	}
	if result.Continuation != nil {
		t.Fatalf("continuation = %v, want nil (all results fit in one page)", *result.Continuation)
	}
}

func TestFileStoreListPagePaginatesWithContinuation(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	for _, key := range []string{"ks/k/a.bin", "ks/k/b.bin", "ks/k/c.bin"} {
		if err := s.Put(key, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", key, err)
		}
	}

	first, err := s.ListPage("ks/k/", "", "", 1)
	if err != nil {
		t.Fatalf("list first page: %v", err)
	}
	if len(first.Objects) != 1 || first.Objects[0].Key != "ks/k/a.bin" || first.Continuation == nil {
		t.Fatalf("first page = %+v, want [a.bin] with a continuation", first)
	}

	second, err := s.ListPage("ks/k/", "", *first.Continuation, 1)
	if err != nil {
		t.Fatalf("list second page: %v", err)
	}
	if len(second.Objects) != 1 || second.Objects[0].Key != "ks/k/b.bin" {
		t.Fatalf("second page = %+v, want [b.bin]", second)
	}

	third, err := s.ListPage("ks/k/", "", *second.Continuation, 1)
	if err != nil {
		t.Fatalf("list third page: %v", err)
	}
	if len(third.Objects) != 1 || third.Objects[0].Key != "ks/k/c.bin" || third.Continuation != nil {
		t.Fatalf("third page = %+v, want [c.bin] with no further continuation", third)
	}
}
