package translate

import "github.com/mevdschee/pgwire-iris/typecodec"

// finalizeParamOIDs fills in typecodec.OIDText for every parameter
// position up to paramCount that stageCast didn't observe a "::type" cast
// for. This is the last step of parameter-OID inference: stageCast
// populates the map opportunistically as it walks the text; this function
// just closes the gaps once the full placeholder count is known.
func finalizeParamOIDs(paramOIDs map[int]uint32, paramCount int) {
	for i := 1; i <= paramCount; i++ {
		if _, ok := paramOIDs[i]; !ok {
			paramOIDs[i] = typecodec.OIDText
		}
	}
}
