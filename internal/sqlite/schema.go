package sqlite

const (
	createPersons = `CREATE TABLE persons (
    person_id TEXT PRIMARY KEY,
    seq INTEGER NOT NULL,
    name TEXT NOT NULL,
    email TEXT NOT NULL,
    age INTEGER,
    created_at TEXT NOT NULL
);`

	idxPersonsSeq   = `CREATE UNIQUE INDEX idx_persons_seq ON persons(seq);`
	idxPersonsEmail = `CREATE INDEX idx_persons_email ON persons(email);`
)

// schemaDDL lists the statements run on a fresh database, in order.
var schemaDDL = []string{
	createPersons,
	idxPersonsSeq,
	idxPersonsEmail,
}
