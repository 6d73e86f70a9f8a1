// Package topology loads the module/sensor layout of the simulated controller.
//
// A topology names the number of modules, the value refresh interval and an
// ordered list of module templates. Every template carries exactly three
// sensor templates; modules beyond the template list reuse templates in
// order (module i uses template (i-1) mod len(templates)).
//
// Topology files are YAML. JSON files are accepted as well since JSON is a
// subset of YAML:
//
//	moduleCount: 5
//	updateIntervalMs: 5000
//	templates:
//	  - namePattern: "Production Line {index}"
//	    status: running
//	    sensors:
//	      - name: "Temperature {index}"
//	        type: temperature
//	        unit: "°C"
//	        minValue: 0
//	        maxValue: 100
//	        waveformKind: sine
//	        waveformConfig: {amplitude: 30, frequency: 0.001, phaseOffset: 0, dcOffset: 50}
//	      - ...
//
// # Failure Handling
//
// Store.Load never fails: a missing, unreadable or invalid file is logged and
// replaced by the built-in Default topology.
package topology
