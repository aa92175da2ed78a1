// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Institute of the Czech National Corpus,
//                Faculty of Arts, Charles University
//   This file is part of KORPEXPORT.
//
//  KORPEXPORT is free software: you can redistribute it and/or modify
//  it under the terms of the GNU General Public License as published by
//  the Free Software Foundation, either version 3 of the License, or
//  (at your option) any later version.
//
//  KORPEXPORT is distributed in the hope that it will be useful,
//  but WITHOUT ANY WARRANTY; without even the implied warranty of
//  MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
//  GNU General Public License for more details.
//
//  You should have received a copy of the GNU General Public License
//  along with KORPEXPORT.  If not, see <https://www.gnu.org/licenses/>.

package cnf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConf = `{
	"listenAddress": "127.0.0.1",
	"listenPort": 8090,
	"logLevel": "debug",
	"korp": {"serverUrl": "http://localhost:1234/korp"},
	"export": {
		"defaultFormat": "csv",
		"options": {"show_info": false}
	},
	"redis": {"host": "redis.local", "ttl": "1h"},
	"timeZone": "UTC"
}`

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(path, []byte(testConf), 0644))
	conf := LoadConfig(path)
	require.NoError(t, Validate(conf))
	assert.True(t, conf.IsDebugMode())
	assert.Equal(t, path, conf.GetSourcePath())
	assert.Equal(t, "http://127.0.0.1:8090", conf.PublicURL)
	assert.Equal(t, dfltServerWriteTimeoutSecs, conf.ServerWriteTimeoutSecs)
	assert.Equal(t, "csv", conf.Export.DefaultFormat)
	assert.Equal(t, false, conf.Export.OptionOverrides()["show_info"])
	assert.Equal(t, time.Hour, conf.Redis.TTLDuration())
	assert.Equal(t, 60, conf.Korp.RequestTimeoutSecs)
	assert.Equal(t, time.UTC, conf.TimezoneLocation())
	assert.Nil(t, conf.TimescaleDB)
}

func TestValidateDefaults(t *testing.T) {
	conf, err := ParseConfig([]byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, Validate(conf))
	assert.Equal(t, dfltListenPort, conf.ListenPort)
	assert.Equal(t, dfltTimeZone, conf.TimeZone)
	assert.Equal(t, "json", conf.Export.DefaultFormat)
	assert.Nil(t, conf.Korp)
}

func TestValidateErrors(t *testing.T) {
	conf, err := ParseConfig([]byte(`{"timeZone": "Mars/Olympus"}`))
	require.NoError(t, err)
	assert.Error(t, Validate(conf))

	conf, err = ParseConfig([]byte(`{"korp": {}}`))
	require.NoError(t, err)
	assert.Error(t, Validate(conf))

	_, err = ParseConfig([]byte(`{"listenPort": "x"}`))
	assert.Error(t, err)
}
