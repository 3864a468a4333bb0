package ledger

const sqlEnsureSchema = `--sql acbaedcc-3747-45ac-b716-61764907fe6d
CREATE TABLE IF NOT EXISTS operations (
    id             UUID PRIMARY KEY,
    category       TEXT        NOT NULL,
    operation      TEXT        NOT NULL,
    success        BOOLEAN     NOT NULL,
    message        TEXT        NOT NULL DEFAULT '',
    duration_ms    BIGINT      NOT NULL,
    artifact_count INT         NOT NULL DEFAULT 0,
    created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS operations_created_at_idx ON operations (created_at DESC);
`

const sqlInsertOperation = `--sql dc0dbdd7-ca5e-46b4-a082-4b2c8f6d7d1b
INSERT INTO operations (id, category, operation, success, message, duration_ms, artifact_count)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`

const sqlRecentOperations = `--sql 7f3006df-0c03-420d-afe7-3296952861a1
SELECT id, category, operation, success, message, duration_ms, artifact_count, created_at
FROM operations
ORDER BY created_at DESC
LIMIT $1;
`

const sqlOperationSummary = `--sql 589b0d0b-ef05-44ad-ad27-4063f09f53f2
SELECT category,
       operation,
       count(*)                                   AS total,
       count(*) FILTER (WHERE success)            AS succeeded,
       coalesce(avg(duration_ms), 0)::float8      AS avg_duration_ms
FROM operations
GROUP BY category, operation
ORDER BY category, operation;
`
