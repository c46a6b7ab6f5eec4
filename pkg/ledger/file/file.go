package file

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/certops/rdscert/pkg/ledger"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

type file struct {
	path   string
	logger log.Logger
}

func NewFile(path string, logger log.Logger) ledger.Ledger {
	return &file{path: path, logger: logger}
}

func (f *file) Get() (*ledger.Record, error) {
	data, err := ioutil.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			level.Info(f.logger).Log("msg", "Metadata file does not exist", "path", f.path)
			return nil, ledger.ErrNotFound
		}
		level.Error(f.logger).Log("err", err, "msg", "Could not read metadata file "+f.path)
		return nil, fmt.Errorf("%w: %v", ledger.ErrCorrupt, err)
	}

	var rec ledger.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		level.Error(f.logger).Log("err", err, "msg", "Could not parse metadata file "+f.path+" as JSON")
		return nil, fmt.Errorf("%w: %v", ledger.ErrCorrupt, err)
	}
	if rec.Fingerprint == "" {
		level.Error(f.logger).Log("msg", "Metadata file "+f.path+" carries no fingerprint")
		return nil, ledger.ErrCorrupt
	}
	level.Info(f.logger).Log("msg", "Metadata file loaded", "fingerprint", rec.Fingerprint)
	return &rec, nil
}

func (f *file) Put(rec ledger.Record) error {
	data, err := json.MarshalIndent(rec, "", "    ")
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(f.path, data, 0600); err != nil {
		level.Error(f.logger).Log("err", err, "msg", "Could not write metadata file "+f.path)
		return err
	}
	level.Info(f.logger).Log("msg", "Metadata file written", "fingerprint", rec.Fingerprint)
	return nil
}
