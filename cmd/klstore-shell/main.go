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

// klstore-shell is an interactive operator console for a key-partitioned
// object-store log: create keyspaces, append test records, page through a
// key, and force a flush, all against a chosen backend.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/launix-de/klog/store"
	"github.com/launix-de/klog/store/objstore"
)

func main() {
	fmt.Print(`klstore-shell Copyright (C) 2026  MemCP Contributors
    This program comes with ABSOLUTELY NO WARRANTY;
    This is free software, and you are welcome to redistribute it
    under certain conditions;
`)

	backend := flag.String("backend", "mem", "object store backend: mem, file, s3")
	baseDir := flag.String("dir", "./klstore-data", "base directory for the file backend")
	bucket := flag.String("bucket", "", "bucket name for the s3 backend")
	endpoint := flag.String("endpoint", "", "custom endpoint for the s3 backend (MinIO and similar)")
	region := flag.String("region", "us-east-1", "region for the s3 backend")
	pathStyle := flag.Bool("path-style", false, "force path-style addressing for the s3 backend")
	flag.Parse()

	os_, err := openBackend(*backend, *baseDir, *bucket, *endpoint, *region, *pathStyle)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}

	cfg := store.DefaultConfig()
	shell := &shell{
		writer: store.NewObjectWriter(os_, cfg),
		reader: store.NewObjectReader(os_, cfg),
	}
	shell.repl()
}

func openBackend(backend, baseDir, bucket, endpoint, region string, pathStyle bool) (store.ObjectStore, error) {
	switch backend {
	case "mem":
		return objstore.NewMemStore(), nil
	case "file":
		return objstore.NewFileStore(baseDir)
	case "s3":
		if bucket == "" {
			return nil, fmt.Errorf("-bucket is required for the s3 backend")
		}
		return objstore.NewS3Store(objstore.S3Config{
			Bucket:         bucket,
			Endpoint:       endpoint,
			Region:         region,
			ForcePathStyle: pathStyle,
		}), nil
	default:
		return nil, fmt.Errorf("unknown backend %q (want mem, file, or s3)", backend)
	}
}
