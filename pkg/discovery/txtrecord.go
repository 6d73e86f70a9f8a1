package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeDeviceTXT creates the TXT records for a device advertisement.
func EncodeDeviceTXT(info *DeviceInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyModules: strconv.Itoa(info.ModuleCount),
	}
	if info.SensorsPerModule > 0 {
		txt[TXTKeySensors] = strconv.Itoa(info.SensorsPerModule)
	}
	if info.DeviceName != "" {
		txt[TXTKeyName] = info.DeviceName
	}
	if info.Version != "" {
		txt[TXTKeyVersion] = info.Version
	}
	return txt
}

// DecodeDeviceTXT parses device TXT records. Only the module count is
// required.
func DecodeDeviceTXT(txt TXTRecordMap) (*DeviceInfo, error) {
	modStr, ok := txt[TXTKeyModules]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyModules)
	}
	modules, err := strconv.Atoi(modStr)
	if err != nil || modules < 0 {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyModules, modStr)
	}

	info := &DeviceInfo{
		ModuleCount: modules,
		DeviceName:  txt[TXTKeyName],
		Version:     txt[TXTKeyVersion],
	}

	if s, ok := txt[TXTKeySensors]; ok {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeySensors, s)
		}
		info.SensorsPerModule = n
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// InstanceName builds the DNS-SD instance name for a device, truncated to
// the DNS label limit.
func InstanceName(info *DeviceInfo) string {
	name := info.DeviceName
	if name == "" {
		name = "device"
	}
	instance := fmt.Sprintf("%s-%d", name, info.Port)
	if len(instance) > MaxInstanceNameLen {
		instance = instance[:MaxInstanceNameLen]
	}
	return instance
}
