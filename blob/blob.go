/*
 * blob.go, part of disloc.
 *
 *
 * Copyright 2026 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

//Package blob stores the artifacts of finished calculations (result records and
//compressed configurations) on the local filesystem or in an S3 compatible bucket.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

//Driver identifies a Store implementation.
type Driver string

//Drivers
const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
)

//ErrExists is returned when putting a key that is already stored. Artifacts are
//never overwritten.
var ErrExists = errors.New("blob: key already exists")

//Info describes a stored blob.
type Info struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
}

//Store is a flat key-value store of blobs.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Info, error)
	Driver() Driver
}

//Config selects and configures a Store.
type Config struct {
	Driver    Driver `toml:"driver"`
	Root      string `toml:"root"`
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	PathStyle bool   `toml:"path_style"`
}

//Environment variables that override the S3 settings of a Config.
const (
	EnvBucket    = "DISLOC_BLOB_S3_BUCKET"
	EnvRegion    = "DISLOC_BLOB_S3_REGION"
	EnvEndpoint  = "DISLOC_BLOB_S3_ENDPOINT"
	EnvPathStyle = "DISLOC_BLOB_S3_PATH_STYLE"
)

//FromEnv returns a copy of c with the S3 settings given in the environment applied.
func (c Config) FromEnv() Config {
	if v := os.Getenv(EnvBucket); v != "" {
		c.Bucket = v
	}
	if v := os.Getenv(EnvRegion); v != "" {
		c.Region = v
	}
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
	if v := os.Getenv(EnvPathStyle); v != "" {
		c.PathStyle = strings.EqualFold(v, "true")
	}
	return c
}

//Check returns an error if the configuration can't give a Store.
func (c Config) Check() error {
	switch c.Driver {
	case "", DriverFilesystem:
		return nil
	case DriverS3:
		if c.Bucket == "" {
			return fmt.Errorf("blob: the s3 driver needs a bucket")
		}
		return nil
	default:
		return fmt.Errorf("blob: unknown driver %q", c.Driver)
	}
}

//Open returns the Store described by c. The filesystem driver is the default.
func Open(ctx context.Context, c Config) (Store, error) {
	if err := c.Check(); err != nil {
		return nil, err
	}
	if c.Driver == DriverS3 {
		return NewS3(ctx, c)
	}
	return NewFS(c.Root)
}

//Key joins the parts of a key with slashes.
func Key(parts ...string) string {
	var clean []string
	for _, p := range parts {
		p = strings.Trim(p, "/")
		if p != "" {
			clean = append(clean, p)
		}
	}
	return strings.Join(clean, "/")
}

//checkKey rejects empty, absolute and upwards-pointing keys.
func checkKey(key string) error {
	switch {
	case strings.TrimSpace(key) == "":
		return fmt.Errorf("blob: empty key")
	case strings.HasPrefix(key, "/"):
		return fmt.Errorf("blob: absolute key %q", key)
	case strings.Contains(key, ".."):
		return fmt.Errorf("blob: key %q contains '..'", key)
	}
	return nil
}

//PutFile stores the file name under key.
func PutFile(ctx context.Context, s Store, key, name, contentType string) (Info, error) {
	f, err := os.Open(name)
	if err != nil {
		return Info{}, err
	}
	defer f.Close()
	return s.Put(ctx, key, f, contentType)
}
