// Package discovery advertises and finds simulated devices over mDNS/DNS-SD.
//
// A device registers one instance of service type _adsim._tcp. The
// instance name is "<device name>-<port>" and the TXT records describe
// the address space:
//
//	modules=<module count>
//	sensors=<sensors per module>
//	name=<device name>
//	ver=<major.minor.build>
//
// Advertisement is optional; a device without it is reachable on its
// configured host and port.
package discovery
