package store

// Schema contains SQL schema definitions for the message store
const Schema = `
-- Normalized messages from every channel, append-only
CREATE TABLE IF NOT EXISTS inbox_messages (
    id TEXT PRIMARY KEY,
    channel TEXT NOT NULL,
    thread_id TEXT NOT NULL,
    message_from TEXT NOT NULL DEFAULT '',
    message_to TEXT NOT NULL DEFAULT '',
    sender_name TEXT NOT NULL DEFAULT '',
    user_type TEXT NOT NULL DEFAULT 'customer',
    direction TEXT NOT NULL DEFAULT 'inbound',
    user_message TEXT,
    final_reply TEXT,
    ai_reply TEXT,
    status TEXT NOT NULL DEFAULT 'new',
    uploaded_at TEXT NOT NULL,
    customer_image_url TEXT,
    agent_image_url TEXT,
    message_id_ebay TEXT,
    item_id_ebay TEXT
);

CREATE INDEX IF NOT EXISTS idx_inbox_messages_thread_id ON inbox_messages(thread_id, uploaded_at);
CREATE INDEX IF NOT EXISTS idx_inbox_messages_uploaded_at ON inbox_messages(uploaded_at);
CREATE INDEX IF NOT EXISTS idx_inbox_messages_channel ON inbox_messages(channel);
CREATE INDEX IF NOT EXISTS idx_inbox_messages_message_to ON inbox_messages(message_to);

-- Threads the operator chose to suppress
CREATE TABLE IF NOT EXISTS hidden_threads (
    thread_id TEXT PRIMARY KEY,
    hidden_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
