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

package main

import (
	"testing"

	"github.com/launix-de/klog/store/objstore"
)

func TestOpenBackendMem(t *testing.T) {
	os_, err := openBackend("mem", "", "", "", "", false)
	if err != nil {
		t.Fatalf("openBackend(mem): %v", err)
	}
	if _, ok := os_.(*objstore.MemStore); !ok {
		t.Fatalf("openBackend(mem) returned %T, want *objstore.MemStore", os_)
	}
}

func TestOpenBackendFile(t *testing.T) {
	os_, err := openBackend("file", t.TempDir(), "", "", "", false)
	if err != nil {
		t.Fatalf("openBackend(file): %v", err)
	}
	if _, ok := os_.(*objstore.FileStore); !ok {
		t.Fatalf("openBackend(file) returned %T, want *objstore.FileStore", os_)
	}
}

func TestOpenBackendS3RequiresBucket(t *testing.T) {
	if _, err := openBackend("s3", "", "", "", "us-east-1", false); err == nil {
		t.Fatalf("expected an error when -bucket is not set for the s3 backend")
	}
}

func TestOpenBackendS3(t *testing.T) {
	os_, err := openBackend("s3", "", "my-bucket", "http://localhost:9000", "us-east-1", true)
	if err != nil {
		t.Fatalf("openBackend(s3): %v", err)
	}
	if _, ok := os_.(*objstore.S3Store); !ok {
		t.Fatalf("openBackend(s3) returned %T, want *objstore.S3Store", os_)
	}
}

func TestOpenBackendUnknown(t *testing.T) {
	if _, err := openBackend("carrier-pigeon", "", "", "", "", false); err == nil {
		t.Fatalf("expected an error for an unknown backend")
	}
}
