package pgstore

// schema is idempotent; Migrate runs it on every start.
const schema = `
CREATE TABLE IF NOT EXISTS exercises
(
    id           TEXT PRIMARY KEY,
    user_id      TEXT        NOT NULL,
    name         TEXT        NOT NULL,
    muscle_group TEXT        NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ix_exercises_user_name ON exercises (user_id, lower(trim(name)));

CREATE TABLE IF NOT EXISTS workouts
(
    id         TEXT PRIMARY KEY,
    user_id    TEXT        NOT NULL,
    date       DATE        NOT NULL,
    title      TEXT        NOT NULL,
    notes      TEXT        NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    CONSTRAINT uq_workouts_user_date_title UNIQUE (user_id, date, title)
);

CREATE TABLE IF NOT EXISTS workout_exercises
(
    id          TEXT PRIMARY KEY,
    user_id     TEXT    NOT NULL,
    workout_id  TEXT    NOT NULL REFERENCES workouts (id) ON DELETE CASCADE,
    exercise_id TEXT    NOT NULL REFERENCES exercises (id) ON DELETE CASCADE,
    notes       TEXT    NOT NULL DEFAULT '',
    order_index INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS ix_workout_exercises_workout ON workout_exercises (workout_id);

CREATE TABLE IF NOT EXISTS sets
(
    id                  TEXT PRIMARY KEY,
    user_id             TEXT             NOT NULL,
    workout_exercise_id TEXT             NOT NULL REFERENCES workout_exercises (id) ON DELETE CASCADE,
    reps                INTEGER          NOT NULL CHECK (reps >= 1),
    weight              DOUBLE PRECISION NOT NULL CHECK (weight >= 0),
    order_index         INTEGER          NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS ix_sets_workout_exercise ON sets (workout_exercise_id);

CREATE TABLE IF NOT EXISTS personal_records
(
    id            TEXT PRIMARY KEY,
    user_id       TEXT             NOT NULL,
    exercise_name TEXT             NOT NULL,
    weight        DOUBLE PRECISION NOT NULL,
    reps          INTEGER          NOT NULL,
    date          DATE             NOT NULL,
    created_at    TIMESTAMPTZ      NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ix_personal_records_user_name ON personal_records (user_id, lower(trim(exercise_name)));

CREATE TABLE IF NOT EXISTS week_templates
(
    id         TEXT PRIMARY KEY,
    user_id    TEXT        NOT NULL,
    name       TEXT        NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS day_templates
(
    id               TEXT PRIMARY KEY,
    user_id          TEXT    NOT NULL,
    week_template_id TEXT    NOT NULL REFERENCES week_templates (id) ON DELETE CASCADE,
    day_of_week      TEXT    NOT NULL,
    name             TEXT    NOT NULL DEFAULT '',
    muscle_group     TEXT    NOT NULL DEFAULT '',
    order_index      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS exercise_templates
(
    id              TEXT PRIMARY KEY,
    user_id         TEXT    NOT NULL,
    day_template_id TEXT    NOT NULL REFERENCES day_templates (id) ON DELETE CASCADE,
    name            TEXT    NOT NULL,
    muscle_group    TEXT    NOT NULL DEFAULT '',
    order_index     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS template_sets
(
    id                   TEXT PRIMARY KEY,
    user_id              TEXT             NOT NULL,
    exercise_template_id TEXT             NOT NULL REFERENCES exercise_templates (id) ON DELETE CASCADE,
    reps                 INTEGER          NOT NULL,
    weight               DOUBLE PRECISION NOT NULL,
    order_index          INTEGER          NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS library_days
(
    id           TEXT PRIMARY KEY,
    user_id      TEXT        NOT NULL,
    name         TEXT        NOT NULL,
    muscle_group TEXT        NOT NULL DEFAULT '',
    usage_count  INTEGER     NOT NULL DEFAULT 0,
    last_used_at TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS library_day_exercises
(
    id             TEXT PRIMARY KEY,
    user_id        TEXT    NOT NULL,
    library_day_id TEXT    NOT NULL REFERENCES library_days (id) ON DELETE CASCADE,
    name           TEXT    NOT NULL,
    muscle_group   TEXT    NOT NULL DEFAULT '',
    order_index    INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS library_day_sets
(
    id                      TEXT PRIMARY KEY,
    user_id                 TEXT             NOT NULL,
    library_day_exercise_id TEXT             NOT NULL REFERENCES library_day_exercises (id) ON DELETE CASCADE,
    reps                    INTEGER          NOT NULL,
    weight                  DOUBLE PRECISION NOT NULL,
    order_index             INTEGER          NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS library_exercises
(
    id           TEXT PRIMARY KEY,
    user_id      TEXT        NOT NULL,
    name         TEXT        NOT NULL,
    muscle_group TEXT        NOT NULL DEFAULT '',
    usage_count  INTEGER     NOT NULL DEFAULT 0,
    last_used_at TIMESTAMPTZ,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS library_exercise_sets
(
    id                  TEXT PRIMARY KEY,
    user_id             TEXT             NOT NULL,
    library_exercise_id TEXT             NOT NULL REFERENCES library_exercises (id) ON DELETE CASCADE,
    reps                INTEGER          NOT NULL,
    weight              DOUBLE PRECISION NOT NULL,
    order_index         INTEGER          NOT NULL DEFAULT 0
);
`
