package db

// Times are unix milliseconds in BIGINT columns on both drivers.
// Rubric numbers are decimal strings so sums stay exact.

var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  window_start INTEGER,
  window_end INTEGER,
  duration_minutes INTEGER NOT NULL DEFAULT 0,
  passing_score REAL NOT NULL,
  max_attempts INTEGER NOT NULL,
  created_by TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  type TEXT NOT NULL,
  prompt TEXT NOT NULL,
  options_json TEXT NOT NULL DEFAULT '[]',
  correct_answer TEXT NOT NULL,
  points REAL NOT NULL,
  order_index INTEGER NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  UNIQUE (quiz_id, order_index)
)`,
	`CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  started_at INTEGER NOT NULL,
  deadline INTEGER,
  submitted_at INTEGER,
  submitted_by TEXT NOT NULL DEFAULT '',
  score REAL NOT NULL DEFAULT 0,
  max_score REAL NOT NULL DEFAULT 0,
  percentage REAL NOT NULL DEFAULT 0,
  passed INTEGER NOT NULL DEFAULT 0,
  time_taken_seconds INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_attempts_active ON attempts(quiz_id, user_id) WHERE status = 'in_progress'`,
	`CREATE INDEX IF NOT EXISTS ix_attempts_quiz_user ON attempts(quiz_id, user_id)`,
	`CREATE INDEX IF NOT EXISTS ix_attempts_due ON attempts(status, deadline)`,
	`CREATE TABLE IF NOT EXISTS answers (
  attempt_id TEXT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL,
  answer_text TEXT NOT NULL,
  answered_at INTEGER NOT NULL,
  is_correct INTEGER,
  points_awarded REAL,
  reviewed_by TEXT NOT NULL DEFAULT '',
  reviewed_at INTEGER,
  PRIMARY KEY (attempt_id, question_id)
)`,
	`CREATE TABLE IF NOT EXISTS rubrics (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  title TEXT NOT NULL,
  created_by TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS rubric_items (
  id TEXT PRIMARY KEY,
  rubric_id TEXT NOT NULL REFERENCES rubrics(id) ON DELETE CASCADE,
  description TEXT NOT NULL,
  max_score TEXT NOT NULL,
  weight TEXT NOT NULL,
  order_index INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS rubric_scores (
  entity_id TEXT NOT NULL,
  rubric_item_id TEXT NOT NULL REFERENCES rubric_items(id) ON DELETE CASCADE,
  score TEXT NOT NULL,
  comment TEXT NOT NULL DEFAULT '',
  scored_by TEXT NOT NULL DEFAULT '',
  scored_at INTEGER NOT NULL,
  PRIMARY KEY (entity_id, rubric_item_id)
)`,
	`CREATE TABLE IF NOT EXISTS grades (
  entity_id TEXT PRIMARY KEY,
  rubric_id TEXT NOT NULL REFERENCES rubrics(id) ON DELETE CASCADE,
  percentage TEXT NOT NULL,
  graded_by TEXT NOT NULL DEFAULT '',
  graded_at INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS course_students (
  course_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  PRIMARY KEY (course_id, student_id)
)`,
	`CREATE TABLE IF NOT EXISTS event_log (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
)`,
}

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS quizzes (
  id TEXT PRIMARY KEY,
  course_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  window_start BIGINT,
  window_end BIGINT,
  duration_minutes INTEGER NOT NULL DEFAULT 0,
  passing_score DOUBLE PRECISION NOT NULL,
  max_attempts INTEGER NOT NULL,
  created_by TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS questions (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  type TEXT NOT NULL,
  prompt TEXT NOT NULL,
  options_json TEXT NOT NULL DEFAULT '[]',
  correct_answer TEXT NOT NULL,
  points DOUBLE PRECISION NOT NULL,
  order_index INTEGER NOT NULL,
  explanation TEXT NOT NULL DEFAULT '',
  UNIQUE (quiz_id, order_index)
)`,
	`CREATE TABLE IF NOT EXISTS attempts (
  id TEXT PRIMARY KEY,
  quiz_id TEXT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL,
  started_at BIGINT NOT NULL,
  deadline BIGINT,
  submitted_at BIGINT,
  submitted_by TEXT NOT NULL DEFAULT '',
  score DOUBLE PRECISION NOT NULL DEFAULT 0,
  max_score DOUBLE PRECISION NOT NULL DEFAULT 0,
  percentage DOUBLE PRECISION NOT NULL DEFAULT 0,
  passed BOOLEAN NOT NULL DEFAULT FALSE,
  time_taken_seconds INTEGER NOT NULL DEFAULT 0
)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ux_attempts_active ON attempts(quiz_id, user_id) WHERE status = 'in_progress'`,
	`CREATE INDEX IF NOT EXISTS ix_attempts_quiz_user ON attempts(quiz_id, user_id)`,
	`CREATE INDEX IF NOT EXISTS ix_attempts_due ON attempts(deadline) WHERE status = 'in_progress'`,
	`CREATE TABLE IF NOT EXISTS answers (
  attempt_id TEXT NOT NULL REFERENCES attempts(id) ON DELETE CASCADE,
  question_id TEXT NOT NULL,
  answer_text TEXT NOT NULL,
  answered_at BIGINT NOT NULL,
  is_correct BOOLEAN,
  points_awarded DOUBLE PRECISION,
  reviewed_by TEXT NOT NULL DEFAULT '',
  reviewed_at BIGINT,
  PRIMARY KEY (attempt_id, question_id)
)`,
	`CREATE TABLE IF NOT EXISTS rubrics (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  title TEXT NOT NULL,
  created_by TEXT NOT NULL DEFAULT '',
  created_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS rubric_items (
  id TEXT PRIMARY KEY,
  rubric_id TEXT NOT NULL REFERENCES rubrics(id) ON DELETE CASCADE,
  description TEXT NOT NULL,
  max_score TEXT NOT NULL,
  weight TEXT NOT NULL,
  order_index INTEGER NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS rubric_scores (
  entity_id TEXT NOT NULL,
  rubric_item_id TEXT NOT NULL REFERENCES rubric_items(id) ON DELETE CASCADE,
  score TEXT NOT NULL,
  comment TEXT NOT NULL DEFAULT '',
  scored_by TEXT NOT NULL DEFAULT '',
  scored_at BIGINT NOT NULL,
  PRIMARY KEY (entity_id, rubric_item_id)
)`,
	`CREATE TABLE IF NOT EXISTS grades (
  entity_id TEXT PRIMARY KEY,
  rubric_id TEXT NOT NULL REFERENCES rubrics(id) ON DELETE CASCADE,
  percentage TEXT NOT NULL,
  graded_by TEXT NOT NULL DEFAULT '',
  graded_at BIGINT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS course_students (
  course_id TEXT NOT NULL,
  student_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  PRIMARY KEY (course_id, student_id)
)`,
	`CREATE TABLE IF NOT EXISTS event_log (
  seq BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
)`,
}
