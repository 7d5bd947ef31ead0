package storage

// ChangesChannel is the LISTEN/NOTIFY channel carrying group writes
const ChangesChannel = "group_changes"

const schema = `
create table if not exists groups (
	id    text primary key,
	name  text not null,
	lat   double precision not null,
	lng   double precision not null,
	texts jsonb
);

create table if not exists users (
	id            text primary key,
	display_name  text not null,
	email         text not null unique,
	password_hash text not null,
	created_at    timestamptz not null
);

create table if not exists profile_images (
	user_id   text primary key,
	image_url text
);
`
