package sosifile

import "strconv"

// koordsysEPSG maps SOSI KOORDSYS codes to EPSG codes.
var koordsysEPSG = map[int]int{
	1: 27391, 2: 27392, 3: 27393, 4: 27394, // NGO1948 axis I-IV
	5: 27395, 6: 27396, 7: 27397, 8: 27398, // NGO1948 axis V-VIII
	21: 25831, 22: 25832, 23: 25833, // EUREF89 UTM 31-33
	24: 25834, 25: 25835, 26: 25836, // EUREF89 UTM 34-36
	31: 23031, 32: 23032, 33: 23033, // ED50 UTM 31-33
	34: 23034, 35: 23035, 36: 23036, // ED50 UTM 34-36
	50: 4230,  // ED50 geographic
	84: 4258,  // EUREF89 geographic
	87: 4326,  // WGS84 geographic
	99: 0,     // local system
}

// EPSGCode returns the EPSG authority code for a KOORDSYS value, e.g.
// "EPSG:25833" for 23. Unknown and local systems return "".
func EPSGCode(koordsys int) string {
	code, ok := koordsysEPSG[koordsys]
	if !ok || code == 0 {
		return ""
	}
	return "EPSG:" + strconv.Itoa(code)
}
