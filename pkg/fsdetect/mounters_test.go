package fsdetect

import "testing"

func TestMounterCoversEveryDetectableKind(t *testing.T) {
	kinds := []Kind{Ext, NTFS, HFSPlus, UDF, ISO9660, FAT, WIM}
	for _, k := range kinds {
		if _, ok := Mounter(k); !ok {
			t.Errorf("no mounter registered for kind %s", k)
		}
	}
	if _, ok := Mounter(Unknown); ok {
		t.Error("Unknown kind should not resolve to a mounter")
	}
}
