package text

// Command verbs.
const (
	VerbSet     = "set"
	VerbAdd     = "add"
	VerbReplace = "replace"
	VerbAppend  = "append"
	VerbPrepend = "prepend"
	VerbCas     = "cas"

	VerbGet  = "get"
	VerbGets = "gets"

	VerbDelete = "delete"
	VerbIncr   = "incr"
	VerbDecr   = "decr"
	VerbTouch  = "touch"

	VerbFlushAll = "flush_all"
	VerbVersion  = "version"
	VerbStats    = "stats"
)

// Protocol limits.
const (
	// MaxKeyLength is the maximum key length in bytes.
	MaxKeyLength = 250

	// MaxValueLength is the default maximum item size accepted by
	// memcached (1 MB, the -I default).
	MaxValueLength = 1 << 20
)

// Reply line tokens.
var (
	crlfBytes      = []byte("\r\n")
	storedBytes    = []byte("STORED")
	notStoredBytes = []byte("NOT_STORED")
	existsBytes    = []byte("EXISTS")
	notFoundBytes  = []byte("NOT_FOUND")
	deletedBytes   = []byte("DELETED")
	touchedBytes   = []byte("TOUCHED")
	okBytes        = []byte("OK")
	endBytes       = []byte("END")
	errorBytes     = []byte("ERROR")

	valuePrefix       = []byte("VALUE ")
	statPrefix        = []byte("STAT ")
	versionPrefix     = []byte("VERSION ")
	clientErrorPrefix = []byte("CLIENT_ERROR ")
	serverErrorPrefix = []byte("SERVER_ERROR ")
)
