package discovery

import (
	"context"
	"errors"
	"net"
	"sort"
	"strings"
	"testing"
)

func TestDeviceTXTRoundTrip(t *testing.T) {
	info := &DeviceInfo{
		DeviceName:       "ADSim",
		Version:          "1.0.1",
		Port:             48898,
		ModuleCount:      5,
		SensorsPerModule: 3,
	}

	txt := EncodeDeviceTXT(info)
	if txt[TXTKeyModules] != "5" {
		t.Errorf("txt[%s] = %q, want %q", TXTKeyModules, txt[TXTKeyModules], "5")
	}

	got, err := DecodeDeviceTXT(StringsToTXTRecords(TXTRecordsToStrings(txt)))
	if err != nil {
		t.Fatalf("DecodeDeviceTXT failed: %v", err)
	}
	if got.ModuleCount != 5 || got.SensorsPerModule != 3 {
		t.Errorf("counts = %d/%d, want 5/3", got.ModuleCount, got.SensorsPerModule)
	}
	if got.DeviceName != "ADSim" || got.Version != "1.0.1" {
		t.Errorf("name/version = %q/%q, want ADSim/1.0.1", got.DeviceName, got.Version)
	}
}

func TestEncodeDeviceTXTOmitsEmpty(t *testing.T) {
	txt := EncodeDeviceTXT(&DeviceInfo{ModuleCount: 2})

	strs := TXTRecordsToStrings(txt)
	sort.Strings(strs)
	if len(strs) != 1 || strs[0] != "modules=2" {
		t.Errorf("TXT = %v, want [modules=2]", strs)
	}
}

func TestDecodeDeviceTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{"missing modules", TXTRecordMap{TXTKeyName: "x"}, ErrMissingRequired},
		{"non-numeric modules", TXTRecordMap{TXTKeyModules: "five"}, ErrInvalidTXTRecord},
		{"negative modules", TXTRecordMap{TXTKeyModules: "-1"}, ErrInvalidTXTRecord},
		{"bad sensors", TXTRecordMap{TXTKeyModules: "1", TXTKeySensors: "x"}, ErrInvalidTXTRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeDeviceTXT(tt.txt)
			if !errors.Is(err, tt.want) {
				t.Errorf("DecodeDeviceTXT() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "flag", "b=x=y", ""})

	if txt["a"] != "1" {
		t.Errorf("a = %q, want 1", txt["a"])
	}
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag = %q, %v; want empty, true", v, ok)
	}
	if txt["b"] != "x=y" {
		t.Errorf("b = %q, want x=y", txt["b"])
	}
	if len(txt) != 3 {
		t.Errorf("len = %d, want 3", len(txt))
	}
}

func TestInstanceName(t *testing.T) {
	if got := InstanceName(&DeviceInfo{DeviceName: "ADSim", Port: 48899}); got != "ADSim-48899" {
		t.Errorf("InstanceName() = %q, want ADSim-48899", got)
	}
	if got := InstanceName(&DeviceInfo{Port: 1}); got != "device-1" {
		t.Errorf("InstanceName() = %q, want device-1", got)
	}

	long := InstanceName(&DeviceInfo{DeviceName: strings.Repeat("n", 100), Port: 8851})
	if len(long) != MaxInstanceNameLen {
		t.Errorf("len(InstanceName()) = %d, want %d", len(long), MaxInstanceNameLen)
	}
}

func TestEntryToDevice(t *testing.T) {
	svc := entryToDevice("ADSim-48898", "host.local.", 48898,
		[]string{"modules=4", "sensors=3", "name=ADSim"},
		[]net.IP{net.IPv4(192, 168, 1, 5)}, []net.IP{net.ParseIP("fe80::1")})
	if svc == nil {
		t.Fatal("entryToDevice returned nil")
	}
	if svc.Port != 48898 || svc.Info.Port != 48898 {
		t.Errorf("port = %d/%d, want 48898", svc.Port, svc.Info.Port)
	}
	if svc.Info.ModuleCount != 4 {
		t.Errorf("ModuleCount = %d, want 4", svc.Info.ModuleCount)
	}
	if len(svc.Addresses) != 2 || svc.Addresses[0] != "192.168.1.5" {
		t.Errorf("Addresses = %v, want [192.168.1.5 fe80::1]", svc.Addresses)
	}

	if entryToDevice("other", "h", 1, []string{"foo=bar"}, nil, nil) != nil {
		t.Error("entryToDevice accepted an entry without module count")
	}
}

func TestAdvertiseRequiresPort(t *testing.T) {
	a := NewMDNSAdvertiser(DefaultAdvertiserConfig())

	err := a.Advertise(context.Background(), &DeviceInfo{ModuleCount: 5})
	if !errors.Is(err, ErrMissingRequired) {
		t.Errorf("Advertise() error = %v, want ErrMissingRequired", err)
	}
	if a.Advertised() != nil {
		t.Error("Advertised() non-nil after failed Advertise")
	}
	if err := a.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}
