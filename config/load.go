package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/bigkevmcd/go-configparser"
	"github.com/psanford/emissary/awsstub"
)

const s3Scheme = "s3://"

// Load reads the store at p. Paths of the form s3://bucket/key are fetched
// from S3 first. Files ending in .toml are decoded as TOML, everything
// else as INI.
func Load(p string) (*Store, error) {
	if strings.HasPrefix(p, s3Scheme) {
		bucket, key, err := parseS3Path(p)
		if err != nil {
			return nil, err
		}
		return loadS3(bucket, key)
	}
	return loadFile(p)
}

func loadFile(p string) (*Store, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}
	fi, err := f.Stat()
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigNotFound, err)
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", ErrConfigNotFound, p)
	}

	if strings.EqualFold(filepath.Ext(p), ".toml") {
		return loadTOML(p)
	}
	return loadINI(p)
}

func loadINI(p string) (*Store, error) {
	parser, err := configparser.NewConfigParserFromFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, p, err)
	}

	sections := make(map[string]map[string]string)
	for _, name := range parser.Sections() {
		items, err := parser.Items(name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: section [%s]: %v", ErrConfigParse, p, name, err)
		}
		sections[name] = items
	}

	return &Store{sections: sections}, nil
}

// loadTOML maps each top-level table to a section. Non-string values are
// re-encoded as JSON text so an inline `data = { priority = 5 }` table
// reaches the channel in the same shape as the INI string form. Floats keep
// a fraction, so `ratio = 5.0` stays a float.
func loadTOML(p string) (*Store, error) {
	var doc map[string]interface{}
	_, err := toml.DecodeFile(p, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, p, err)
	}

	sections := make(map[string]map[string]string)
	for name, v := range doc {
		tbl, ok := v.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%w: %s: top level key %q is not a table", ErrConfigParse, p, name)
		}

		sec := make(map[string]string, len(tbl))
		for k, val := range tbl {
			if s, ok := val.(string); ok {
				sec[k] = s
				continue
			}
			b, err := json.Marshal(jsonFloats(val))
			if err != nil {
				return nil, fmt.Errorf("%w: %s: [%s] %s: %v", ErrConfigParse, p, name, k, err)
			}
			sec[k] = string(b)
		}
		sections[name] = sec
	}

	return &Store{sections: sections}, nil
}

// jsonFloats replaces float64 values with json.Number literals that always
// carry a fraction or exponent.
func jsonFloats(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		n := strconv.FormatFloat(x, 'g', -1, 64)
		if !strings.ContainsAny(n, ".eEIN") {
			n += ".0"
		}
		return json.Number(n)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(x))
		for k, e := range x {
			out[k] = jsonFloats(e)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = jsonFloats(e)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(x))
		for i, e := range x {
			out[i] = jsonFloats(e)
		}
		return out
	}
	return v
}

func parseS3Path(p string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(p, s3Scheme)
	idx := strings.Index(rest, "/")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", fmt.Errorf("%w: invalid s3 path %q, expected s3://bucket/key", ErrConfigNotFound, p)
	}
	return rest[:idx], rest[idx+1:], nil
}

// loadS3 downloads the object into a scratch directory so the file loaders,
// which pick the format from the extension, can be reused.
func loadS3(bucket, key string) (*Store, error) {
	if awsstub.S3GetObj == nil {
		awsstub.InitAWS()
	}

	resp, err := awsstub.S3GetObj(&s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: s3://%s/%s: %v", ErrConfigNotFound, bucket, key, err)
	}
	defer resp.Body.Close()

	dir, err := os.MkdirTemp("", "emissary")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, path.Base(key))
	f, err := os.Create(local)
	if err != nil {
		return nil, err
	}
	_, err = io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("%w: s3://%s/%s: %v", ErrConfigNotFound, bucket, key, err)
	}

	return loadFile(local)
}
